// Package sensor simulates the plant's industrial IoT sensors.
//
// Each reading is wrapped in a unified envelope that places the value in the
// OPC UA address space, the ISA-95 equipment hierarchy and the MQTT Sparkplug B
// topic namespace, with a UCUM unit and a data quality grade derived from the
// sensor's normal operating band.
package sensor
