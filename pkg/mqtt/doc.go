// Package mqtt embeds an MQTT broker that mirrors simmurator telemetry for
// MQTT clients.
//
// Sensor readings are published periodically on Sparkplug B style topics,
//
//	spBv1.0/Plant-01/DDATA/Edge-Node-01/<deviceId>
//
// and every access log entry is republished on a configurable topic as the
// same {"type":"access","data":...} frame that /events carries. All
// publishes are QoS 0 and not retained.
package mqtt
