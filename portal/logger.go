package portal

import "fmt"

// Logger interface for observability
type Logger interface {
	Printf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// SimpleLogger is a basic logger implementation
type SimpleLogger struct{}

func (sl *SimpleLogger) Printf(format string, v ...interface{}) {
	fmt.Printf(format+"\n", v...)
}

func (sl *SimpleLogger) Errorf(format string, v ...interface{}) {
	fmt.Printf("ERROR: "+format+"\n", v...)
}
