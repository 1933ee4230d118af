package sensor

import "fmt"

// Plant constants shared by every reading.
const (
	Site           = "Thailand-Plant-01"
	GroupID        = "Plant-01"
	EdgeNodeID     = "Edge-Node-01"
	SparkplugV1    = "spBv1.0"
	MessageDDATA   = "DDATA"
	NamespaceIndex = 2
)

// Quality is the OPC UA style data quality of a reading.
type Quality string

// Quality values.
const (
	QualityGood          Quality = "good"
	QualityGoodUncertain Quality = "goodUncertain"
	QualityUncertain     Quality = "uncertain"
	QualityBad           Quality = "bad"
)

// StatusCode is the OPC UA status code name reported with a reading.
type StatusCode string

// Status codes.
const (
	StatusGood                  StatusCode = "good"
	StatusGoodUncertain         StatusCode = "goodUncertain"
	StatusUncertainInitialValue StatusCode = "uncertainInitialValue"
	StatusBadSensorFailure      StatusCode = "badSensorFailure"
	StatusBadCommunicationError StatusCode = "badCommunicationError"
	StatusBadOutOfService       StatusCode = "badOutOfService"
)

// OpcUaNode identifies the reading's node in the OPC UA address space.
type OpcUaNode struct {
	NodeID         string `json:"nodeId"`
	BrowseName     string `json:"browseName"`
	DisplayName    string `json:"displayName"`
	NamespaceIndex int    `json:"namespaceIndex"`
}

// Equipment is the ISA-95 equipment hierarchy of a sensor.
type Equipment struct {
	Site      string `json:"site"`
	Area      string `json:"area"`
	Line      string `json:"line"`
	Unit      string `json:"unit"`
	Equipment string `json:"equipment"`
}

// SparkplugTopic describes the MQTT Sparkplug B topic a reading maps to.
type SparkplugTopic struct {
	Version     string `json:"version"`
	GroupID     string `json:"groupId"`
	MessageType string `json:"messageType"`
	EdgeNodeID  string `json:"edgeNodeId"`
	DeviceID    string `json:"deviceId"`
}

// String renders the topic path, e.g. spBv1.0/Plant-01/DDATA/Edge-Node-01/TEMP-001.
func (t SparkplugTopic) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", t.Version, t.GroupID, t.MessageType, t.EdgeNodeID, t.DeviceID)
}

// Unit is a UCUM unit code with its display form.
type Unit struct {
	Code    string `json:"code"`
	Display string `json:"display"`
}

// Reading is one simulated measurement wrapped in the plant's information
// model. Readings are built fresh per call and never shared.
type Reading struct {
	OpcUa              OpcUaNode      `json:"opcUa"`
	EquipmentHierarchy Equipment      `json:"equipmentHierarchy"`
	SparkplugTopic     SparkplugTopic `json:"sparkplugTopic"`
	SourceTimestamp    string         `json:"sourceTimestamp"`
	ServerTimestamp    string         `json:"serverTimestamp"`
	Value              map[string]any `json:"value"`
	DataQuality        Quality        `json:"dataQuality"`
	OpcUaStatusCode    StatusCode     `json:"opcUaStatusCode"`
	Unit               Unit           `json:"unit"`
	SensorType         string         `json:"sensorType"`
	Description        string         `json:"description"`
	Properties         map[string]any `json:"properties"`
}

func opcUaNode(deviceID, displayName string) OpcUaNode {
	return OpcUaNode{
		NodeID:         "ns=2;s=" + deviceID,
		BrowseName:     "2:" + deviceID,
		DisplayName:    displayName,
		NamespaceIndex: NamespaceIndex,
	}
}

func equipment(deviceID, line, area string) Equipment {
	return Equipment{
		Site:      Site,
		Area:      area,
		Line:      line,
		Unit:      line + "-Unit",
		Equipment: deviceID,
	}
}

func sparkplugTopic(deviceID string) SparkplugTopic {
	return SparkplugTopic{
		Version:     SparkplugV1,
		GroupID:     GroupID,
		MessageType: MessageDDATA,
		EdgeNodeID:  EdgeNodeID,
		DeviceID:    deviceID,
	}
}

// QualityFor grades value against its normal band [lo, hi]. Values within
// 10% outside the band are uncertain, anything further is bad.
func QualityFor(value, lo, hi float64) Quality {
	switch {
	case value >= lo && value <= hi:
		return QualityGood
	case value >= lo*0.9 && value <= hi*1.1:
		return QualityUncertain
	default:
		return QualityBad
	}
}

// StatusFor maps a quality to the status code reported alongside it.
func StatusFor(q Quality) StatusCode {
	switch q {
	case QualityGood:
		return StatusGood
	case QualityGoodUncertain:
		return StatusGoodUncertain
	case QualityUncertain:
		return StatusUncertainInitialValue
	default:
		return StatusBadSensorFailure
	}
}

var ucumUnits = map[string]Unit{
	"°C":    {"Cel", "°C"},
	"°F":    {"[degF]", "°F"},
	"%RH":   {"%", "%RH"},
	"m³/h":  {"m3/h", "m³/h"},
	"m³":    {"m3", "m³"},
	"kg/m³": {"kg/m3", "kg/m³"},
	"µg/m³": {"ug/m3", "µg/m³"},
	"µS/cm": {"uS/cm", "µS/cm"},
	"RPM":   {"rpm", "RPM"},
}

// UCUM returns the UCUM unit for a display symbol. Symbols that are already
// valid UCUM codes (bar, hPa, kW, ppm, ...) map to themselves.
func UCUM(symbol string) Unit {
	if u, ok := ucumUnits[symbol]; ok {
		return u
	}
	return Unit{Code: symbol, Display: symbol}
}
