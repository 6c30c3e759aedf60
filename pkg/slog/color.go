package slog

import "sshclient/pkg/escseq"

var levelPaint = map[Level]func(string) string{
	LevelDebug: escseq.BlueBrightBoldText,
	LevelInfo:  escseq.CyanBoldText,
	LevelWarn:  escseq.YellowBrightBoldText,
	LevelError: escseq.RedBoldText,
	LevelFatal: escseq.RedBrightBoldText,
}

// tag returns the bracketed level name followed by the separator.
func (l *Logger) tag(lv Level) string {
	if !l.colorOn {
		return "[" + lv.String() + "]" + separator
	}
	return "[" + levelPaint[lv](lv.String()) + "]" + escseq.GreyBoldText(separator)
}
