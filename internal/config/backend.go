package config

// ConfigBackend abstracts platform-specific config storage: UserDefaults
// (via the `defaults` CLI) on macOS, an XDG JSON file elsewhere. Only
// integer keys use the Int accessors; other types travel as strings.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
