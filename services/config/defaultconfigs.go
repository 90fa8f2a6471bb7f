package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "bridge": {
      "ring_size": 512,
      "drain_interval_ms": 10
  },
  "stats": {
      "interval_ms": 1000
  }
}`

const cfgHost = `{
  "bridge": {
      "ring_size": 512,
      "drain_interval_ms": 2
  },
  "stats": {
      "interval_ms": 500
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"host": []byte(cfgHost),
}
