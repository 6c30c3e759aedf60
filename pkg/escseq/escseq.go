package escseq

import "fmt"

const KeyEscape = 27

var (
	resetColor = []byte{KeyEscape, '[', '0', 'm'}
	// Colors
	greyBold         = []byte{KeyEscape, '[', '1', ';', '9', '0', 'm'}
	redBrightBold    = []byte{KeyEscape, '[', '1', ';', '9', '1', 'm'}
	redBold          = []byte{KeyEscape, '[', '1', ';', '3', '1', 'm'}
	yellowBrightBold = []byte{KeyEscape, '[', '1', ';', '9', '3', 'm'}
	blueBrightBold   = []byte{KeyEscape, '[', '1', ';', '9', '4', 'm'}
	cyanBold         = []byte{KeyEscape, '[', '1', ';', '3', '6', 'm'}
)

func paint(color []byte, m string) string {
	return fmt.Sprintf("%s%s%s", string(color), m, string(resetColor))
}

func GreyBoldText(m string) string {
	return paint(greyBold, m)
}

func RedBoldText(m string) string {
	return paint(redBold, m)
}

func RedBrightBoldText(m string) string {
	return paint(redBrightBold, m)
}

func YellowBrightBoldText(m string) string {
	return paint(yellowBrightBold, m)
}

func CyanBoldText(m string) string {
	return paint(cyanBold, m)
}

func BlueBrightBoldText(m string) string {
	return paint(blueBrightBold, m)
}
