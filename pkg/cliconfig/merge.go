package cliconfig

// MergeConfig merges source config into target, updating sources tracking.
//
// When source.SetFields is set (file, env and flag configs), exactly the
// keys it names are applied, zero values included. Otherwise only
// non-zero values are applied.
func MergeConfig(target, source *Config, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}
	m := merger{target: target, source: source, sourceType: sourceType}

	if m.has("port", source.Port != 0) {
		target.Port = source.Port
	}
	if m.has("staticDir", source.StaticDir != "") {
		target.StaticDir = source.StaticDir
	}
	if m.has("maxConnections", source.MaxConnections != 0) {
		target.MaxConnections = source.MaxConnections
	}
	if m.has("maxLogEntries", source.MaxLogEntries != 0) {
		target.MaxLogEntries = source.MaxLogEntries
	}
	if m.has("defaultLimit", source.DefaultLimit != 0) {
		target.DefaultLimit = source.DefaultLimit
	}
	if m.has("logLevel", source.LogLevel != "") {
		target.LogLevel = source.LogLevel
	}
	if m.has("logFormat", source.LogFormat != "") {
		target.LogFormat = source.LogFormat
	}

	s, t := &source.Stream, &target.Stream
	if m.has("stream.defaultIntervalMs", s.DefaultIntervalMs != 0) {
		t.DefaultIntervalMs = s.DefaultIntervalMs
	}
	if m.has("stream.scheduler", s.Scheduler != "") {
		t.Scheduler = s.Scheduler
	}
	if m.has("stream.keepaliveSeconds", s.KeepaliveSeconds != 0) {
		t.KeepaliveSeconds = s.KeepaliveSeconds
	}
	if m.has("stream.sseBuffer", s.SSEBuffer != 0) {
		t.SSEBuffer = s.SSEBuffer
	}

	sim, tsim := &source.Simulation, &target.Simulation
	if m.has("simulation.slowRate", sim.SlowRate != 0) {
		tsim.SlowRate = sim.SlowRate
	}
	if m.has("simulation.slowMinMs", sim.SlowMinMs != 0) {
		tsim.SlowMinMs = sim.SlowMinMs
	}
	if m.has("simulation.slowMaxMs", sim.SlowMaxMs != 0) {
		tsim.SlowMaxMs = sim.SlowMaxMs
	}
	if m.has("simulation.fastMinMs", sim.FastMinMs != 0) {
		tsim.FastMinMs = sim.FastMinMs
	}
	if m.has("simulation.fastMaxMs", sim.FastMaxMs != 0) {
		tsim.FastMaxMs = sim.FastMaxMs
	}
	if m.has("simulation.errorRate", sim.ErrorRate != 0) {
		tsim.ErrorRate = sim.ErrorRate
	}

	rl, trl := &source.RateLimit, &target.RateLimit
	if m.has("rateLimit.enabled", rl.Enabled) {
		trl.Enabled = rl.Enabled
	}
	if m.has("rateLimit.rps", rl.RPS != 0) {
		trl.RPS = rl.RPS
	}
	if m.has("rateLimit.burst", rl.Burst != 0) {
		trl.Burst = rl.Burst
	}

	mq, tmq := &source.MQTT, &target.MQTT
	if m.has("mqtt.enabled", mq.Enabled) {
		tmq.Enabled = mq.Enabled
	}
	if m.has("mqtt.port", mq.Port != 0) {
		tmq.Port = mq.Port
	}
	if m.has("mqtt.publishIntervalMs", mq.PublishIntervalMs != 0) {
		tmq.PublishIntervalMs = mq.PublishIntervalMs
	}
	if m.has("mqtt.accessTopic", mq.AccessTopic != "") {
		tmq.AccessTopic = mq.AccessTopic
	}
}

type merger struct {
	target, source *Config
	sourceType     string
}

// has reports whether key should be taken from the source and, if so,
// records the source for it.
func (m merger) has(key string, nonZero bool) bool {
	ok := nonZero
	if m.source.SetFields != nil {
		ok = m.source.SetFields[key]
	}
	if ok {
		m.target.Sources[key] = m.sourceType
	}
	return ok
}
