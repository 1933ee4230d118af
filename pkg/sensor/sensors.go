package sensor

import (
	"math"
	"math/rand/v2"
)

// sample is the sensor-specific part of a reading.
type sample struct {
	value   map[string]any
	unit    string
	quality Quality
}

// definition describes one simulated sensor.
type definition struct {
	name        string
	deviceID    string
	displayName string
	line        string
	area        string
	sensorType  string
	description string
	generate    func(r *rand.Rand) sample
}

// definitions is the registry in its published order.
var definitions = []definition{
	{
		name: "temperature", deviceID: "TEMP-001", displayName: "Temperature Sensor",
		line: "Production-Line-1", area: "Factory-Floor-A",
		sensorType: "temperature", description: "Industrial temperature sensor",
		generate: temperature,
	},
	{
		name: "humidity", deviceID: "HUM-002", displayName: "Humidity Sensor",
		line: "Server-Room-B", area: "IT-Infrastructure",
		sensorType: "humidity", description: "Relative humidity sensor",
		generate: humidity,
	},
	{
		name: "oil-level", deviceID: "OIL-003", displayName: "Oil Level Sensor",
		line: "Storage-Tank-C", area: "Tank-Farm",
		sensorType: "oil_level", description: "Industrial oil level sensor",
		generate: oilLevel,
	},
	{
		name: "oil-pressure", deviceID: "OPR-004", displayName: "Oil Pressure Sensor",
		line: "Pipeline-D", area: "Process-Area",
		sensorType: "oil_pressure", description: "Hydraulic oil pressure sensor",
		generate: oilPressure,
	},
	{
		name: "air-quality", deviceID: "AQI-005", displayName: "Air Quality Sensor",
		line: "Outdoor-Station-E", area: "Environment",
		sensorType: "air_quality", description: "Multi-parameter air quality sensor",
		generate: airQuality,
	},
	{
		name: "pressure", deviceID: "PRS-006", displayName: "Atmospheric Pressure Sensor",
		line: "Weather-Station-F", area: "Environment",
		sensorType: "pressure", description: "Atmospheric pressure sensor",
		generate: pressure,
	},
	{
		name: "vibration", deviceID: "VIB-007", displayName: "Vibration Sensor",
		line: "CNC-Machine-02", area: "Machine-Shop",
		sensorType: "vibration", description: "ISO 10816 vibration monitoring sensor",
		generate: vibration,
	},
	{
		name: "energy-meter", deviceID: "ENR-008", displayName: "Energy Meter",
		line: "Main-Panel-H", area: "Electrical",
		sensorType: "energy", description: "3-phase power quality meter",
		generate: energyMeter,
	},
	{
		name: "amr", deviceID: "AMR-009", displayName: "AMR Oil Pipeline Meter",
		line: "Pipeline-Station", area: "Oil-Gas",
		sensorType: "amr_oil_pipeline", description: "Automatic meter reading for oil pipeline",
		generate: amr,
	},
	{
		name: "flow-meter", deviceID: "FLW-010", displayName: "Flow Meter",
		line: "Process-Line-J", area: "Process",
		sensorType: "flow_meter", description: "Industrial flow measurement",
		generate: flowMeter,
	},
	{
		name: "gas-detector", deviceID: "GAS-011", displayName: "Gas Detector",
		line: "Confined-Space-K", area: "Safety",
		sensorType: "gas_detector", description: "4-gas safety monitor",
		generate: gasDetector,
	},
	{
		name: "ph-sensor", deviceID: "PH-012", displayName: "pH Sensor",
		line: "Water-Treatment-L", area: "Water",
		sensorType: "ph_sensor", description: "Water quality pH/ORP sensor",
		generate: phSensor,
	},
	{
		name: "level-sensor", deviceID: "LVL-013", displayName: "Level Sensor",
		line: "Storage-Tank-M", area: "Tank-Farm",
		sensorType: "level_sensor", description: "Tank level measurement sensor",
		generate: levelSensor,
	},
	{
		name: "proximity-sensor", deviceID: "PRX-014", displayName: "Proximity Sensor",
		line: "Conveyor-Station-N", area: "Material-Handling",
		sensorType: "proximity_sensor", description: "Object detection proximity sensor",
		generate: proximitySensor,
	},
}

func temperature(r *rand.Rand) sample {
	t := between(r, 18, 32)
	return sample{
		value: map[string]any{
			"value":        round(t, 1),
			"minThreshold": 18.0,
			"maxThreshold": 27.0,
			"criticalHigh": 32.0,
			"criticalLow":  15.0,
		},
		unit:    "°C",
		quality: QualityFor(t, 18, 27),
	}
}

func humidity(r *rand.Rand) sample {
	h := between(r, 25, 75)
	return sample{
		value: map[string]any{
			"value":        round(h, 1),
			"optimalMin":   40.0,
			"optimalMax":   60.0,
			"allowableMin": 20.0,
			"allowableMax": 80.0,
			"dewPoint":     round(DewPoint(h, between(r, 20, 30)), 1),
		},
		unit:    "%RH",
		quality: QualityFor(h, 40, 60),
	}
}

func oilLevel(r *rand.Rand) sample {
	capacity := intRange(r, 10000, 50001)
	level := between(r, 15, 95)
	volume := int(float64(capacity) * level / 100)
	return sample{
		value: map[string]any{
			"value":               round(level, 1),
			"tankCapacityLiters":  capacity,
			"tankCapacityM3":      round(float64(capacity)/1000, 1),
			"currentVolumeLiters": volume,
			"currentVolumeM3":     round(float64(volume)/1000, 2),
			"lowAlarmThreshold":   10.0,
			"highAlarmThreshold":  95.0,
		},
		unit:    "%",
		quality: QualityFor(level, 20, 90),
	}
}

func oilPressure(r *rand.Rand) sample {
	p := between(r, 15, 200)
	return sample{
		value: map[string]any{
			"value":              round(p, 2),
			"flowRateLpm":        round(between(r, 50, 500), 1),
			"operatingRange":     "10-200 bar",
			"maxWorkingPressure": 250.0,
		},
		unit:    "bar",
		quality: QualityFor(p, 30, 180),
	}
}

func airQuality(r *rand.Rand) sample {
	pm25 := between(r, 5, 75)
	pm10 := pm25 * between(r, 1.5, 2.5)
	aqi := AQIFromPM25(pm25)
	q := QualityBad
	if aqi <= 100 {
		q = QualityFor(pm25, 0, 35)
	}
	return sample{
		value: map[string]any{
			"pm25":             round(pm25, 1),
			"pm10":             round(pm10, 1),
			"co2":              round(between(r, 400, 1500), 0),
			"voc":              round(between(r, 0.1, 2.0), 2),
			"aqi":              aqi,
			"whoPm25Guideline": 15.0,
			"whoPm10Guideline": 45.0,
			"co2Threshold":     1000.0,
		},
		unit:    "µg/m³",
		quality: q,
	}
}

func pressure(r *rand.Rand) sample {
	p := between(r, 990, 1030)
	altitude := between(r, 0, 100)
	seaLevel := p * math.Pow(1+altitude/44330, 5.255)
	trend := "falling"
	if chance(r, 0.5) {
		trend = "rising"
	}
	return sample{
		value: map[string]any{
			"value":            round(p, 1),
			"seaLevelPressure": round(seaLevel, 1),
			"altitudeMeters":   round(altitude, 1),
			"standardPressure": 1013.25,
			"trend":            trend,
		},
		unit:    "hPa",
		quality: QualityFor(p, 980, 1050),
	}
}

func vibration(r *rand.Rand) sample {
	v := between(r, 0.5, 12)
	f := between(r, 10, 1000)
	omega := f * 2 * math.Pi
	return sample{
		value: map[string]any{
			"velocityRms":  round(v, 3),
			"frequency":    round(f, 1),
			"acceleration": round(v*omega/1000, 3),
			"displacement": round(v/omega*1000, 4),
			"machineType":  "Class II (Medium machines)",
			"iso10816Limits": map[string]any{
				"good":           2.8,
				"satisfactory":   7.1,
				"unsatisfactory": 18.0,
			},
		},
		unit:    "mm/s",
		quality: QualityFor(v, 0, 7.1),
	}
}

func energyMeter(r *rand.Rand) sample {
	l1 := between(r, 218, 242)
	l3 := l1 * 1.732
	current := between(r, 5, 200)
	pf := between(r, 0.80, 0.98)
	apparent := l3 * current * 1.732 / 1000
	active := apparent * pf
	reactive := math.Sqrt(apparent*apparent - active*active)
	return sample{
		value: map[string]any{
			"activePower":      round(active, 2),
			"apparentPower":    round(apparent, 2),
			"reactivePower":    round(reactive, 2),
			"voltageL1":        round(l1, 1),
			"voltageL3":        round(l3, 1),
			"current":          round(current, 2),
			"powerFactor":      round(pf, 3),
			"frequency":        round(between(r, 49.5, 50.5), 2),
			"cumulativeEnergy": round(between(r, 10000, 500000), 1),
		},
		unit:    "kW",
		quality: QualityFor(pf, 0.85, 1.0),
	}
}

func amr(r *rand.Rand) sample {
	st := Stations[r.IntN(len(Stations))]
	flowM3H := between(r, 500, 2500)
	inlet := between(r, 30, 80)
	outlet := inlet - between(r, 5, 20)
	gravity := between(r, 25, 35)
	direction := "reverse"
	if chance(r, 0.95) {
		direction = "forward"
	}
	valve := "throttled"
	if chance(r, 0.85) {
		valve = "open"
	}
	return sample{
		value: map[string]any{
			"meterSerial":          "AMR-PIPE-2024-09",
			"pipelineId":           "PIPE-AMR-01",
			"location":             st.Location,
			"province":             st.Province,
			"coordinates":          map[string]any{"lat": st.Lat, "lng": st.Lng},
			"flowRate":             round(flowM3H*1000/60, 2),
			"flowRateM3H":          round(flowM3H, 2),
			"flowDirection":        direction,
			"cumulativeFlow":       round(between(r, 1_000_000, 50_000_000), 1),
			"inletPressure":        round(inlet, 2),
			"outletPressure":       round(outlet, 2),
			"differentialPressure": round(inlet-outlet, 2),
			"temperature":          round(between(r, 40, 70), 1),
			"apiGravity":           round(gravity, 1),
			"density":              round(141.5/(gravity+131.5)*998, 1),
			"viscosity":            round(between(r, 10, 100), 2),
			"waterContent":         round(between(r, 0.1, 2.0), 3),
			"pumpSpeed":            intRange(r, 1200, 1800),
			"valveStatus":          valve,
			"valveOpenPercent":     round(between(r, 60, 100), 1),
			"leakDetected":         chance(r, 0.02),
			"batteryLevel":         round(between(r, 70, 100), 1),
			"signalStrength":       intRange(r, -85, -50),
			"lastCalibration":      "2025-01-15T08:00:00.000Z",
			"nextCalibrationDue":   "2025-07-15T08:00:00.000Z",
		},
		unit:    "L/min",
		quality: QualityFor(inlet, 30, 80),
	}
}

func flowMeter(r *rand.Rand) sample {
	media := pick(r, "liquid", "gas", "steam")
	var rate, total, density float64
	unit := "m³/h"
	switch media {
	case "liquid":
		rate, total = between(r, 10, 1000), between(r, 10_000, 500_000)
	case "gas":
		rate, total = between(r, 100, 10_000), between(r, 100_000, 5_000_000)
	default:
		rate, total = between(r, 500, 50_000), between(r, 1_000_000, 50_000_000)
		unit = "kg/h"
	}
	temp := between(r, 20, 200)
	press := between(r, 1, 20)
	if media == "steam" {
		density = between(r, 1, 50)
	} else {
		density = between(r, 800, 1000)
	}
	return sample{
		value: map[string]any{
			"mediaType":   media,
			"flowRate":    round(rate, 2),
			"totalizer":   round(total, 1),
			"temperature": round(temp, 1),
			"pressure":    round(press, 2),
			"density":     round(density, 1),
			"pipeSize":    intRange(r, 50, 300),
			"meterType":   pick(r, "electromagnetic", "vortex", "ultrasonic", "coriolis"),
		},
		unit:    unit,
		quality: QualityFor(rate, 10, 1000),
	}
}

func gasDetector(r *rand.Rand) sample {
	co := between(r, 0, 50)
	h2s := between(r, 0, 10)
	o2 := between(r, 19.5, 23.5)
	lel := between(r, 0, 20)
	coAlarm := co > 35
	h2sAlarm := h2s > 10
	o2Alarm := o2 < 19.5 || o2 > 23.5
	lelAlarm := lel > 10
	q := QualityGood
	if coAlarm || h2sAlarm || o2Alarm || lelAlarm {
		q = QualityBad
	}
	return sample{
		value: map[string]any{
			"carbonMonoxide":   round(co, 1),
			"coAlarmSetpoint":  35.0,
			"hydrogenSulfide":  round(h2s, 2),
			"h2sAlarmSetpoint": 10.0,
			"oxygen":           round(o2, 1),
			"o2LowAlarm":       19.5,
			"o2HighAlarm":      23.5,
			"lel":              round(lel, 1),
			"lelAlarmSetpoint": 10.0,
			"alarms": map[string]any{
				"co":  coAlarm,
				"h2s": h2sAlarm,
				"o2":  o2Alarm,
				"lel": lelAlarm,
			},
		},
		unit:    "ppm",
		quality: q,
	}
}

func phSensor(r *rand.Rand) sample {
	ph := between(r, 4, 10)
	return sample{
		value: map[string]any{
			"phValue":      round(ph, 2),
			"orp":          round(between(r, -500, 500), 1),
			"temperature":  round(between(r, 15, 40), 1),
			"conductivity": round(between(r, 100, 5000), 1),
			"turbidity":    round(between(r, 0.1, 100), 2),
		},
		unit:    "pH",
		quality: QualityFor(ph, 6, 8.5),
	}
}

func levelSensor(r *rand.Rand) sample {
	height := between(r, 5, 20)
	level := between(r, 0.5, height-0.5)
	pct := level / height * 100
	return sample{
		value: map[string]any{
			"level":      round(level, 3),
			"tankHeight": round(height, 1),
			"percentage": round(pct, 2),
			"volume":     round(level*between(r, 10, 100), 2),
			"sensorType": pick(r, "ultrasonic", "radar", "guided_wave", "pressure"),
			"accuracy":   "±3mm",
		},
		unit:    "m",
		quality: QualityFor(pct, 10, 90),
	}
}

func proximitySensor(r *rand.Rand) sample {
	detected := chance(r, 0.7)
	var distance any
	q := QualityUncertain
	if detected {
		distance = round(between(r, 5, 50), 1)
		q = QualityGood
	}
	return sample{
		value: map[string]any{
			"objectDetected":     detected,
			"distance":           distance,
			"sensorType":         pick(r, "inductive", "capacitive", "photoelectric", "ultrasonic"),
			"detectionRange":     between(r, 1, 100),
			"responseTime":       between(r, 0.1, 10),
			"switchingFrequency": intRange(r, 100, 5000),
			"detectionCount":     r.IntN(10000),
			"operatingTime":      round(between(r, 1000, 50000), 1),
		},
		unit:    "mm",
		quality: q,
	}
}
