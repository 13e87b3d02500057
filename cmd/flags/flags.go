package flags

var (
	Debug bool
	Dev   bool

	Listen     string
	Port       uint16
	ConfigPath string

	Dial     string
	FilePath string

	Source string
	Dest   string
)
