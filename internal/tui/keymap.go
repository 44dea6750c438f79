package tui

// Key binding constants used in handleKey.
const (
	KeyQuit         = "q"
	KeyCtrlC        = "ctrl+c"
	KeyReset        = "r"
	KeyHelp         = "h"
	KeyHistory      = "l"
	KeyEnter        = "enter"
	KeyBack         = "esc"
	KeyInterruption = "i"
	KeyPause        = "p"
	KeyUp           = "up"
	KeyDown         = "down"
	KeyJ            = "j"
	KeyK            = "k"
)
