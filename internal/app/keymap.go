package app

// Key binding constants used in handleKey.
const (
	KeyQuit          = "q"
	KeyQuitUpper     = "Q"
	KeyCtrlC         = "ctrl+c"
	KeySpace         = " "
	KeyPause         = "p"
	KeyLanguage      = "l"
	KeyLanguageUpper = "L"
	KeyEngine        = "e"
	KeyFormat        = "f"
	KeyTimestamp     = "t"
	KeyDirectory     = "d"
	KeySave          = "s"
	KeyCopy          = "c"
	KeyEnter         = "enter"
	KeyEsc           = "esc"
)
