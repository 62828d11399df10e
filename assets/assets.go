package assets

import _ "embed"

// Fonts embedded into generated PDF reports. DejaVu covers the rupee sign.
var (
	//go:embed fonts/DejaVuSans.ttf
	FontRegular []byte

	//go:embed fonts/DejaVuSans-Bold.ttf
	FontBold []byte
)
