package scene

// Named colors, linear RGBA.
var (
	Tan            = [4]float32{0.823529, 0.705882, 0.549020, 1}
	ForestGreen    = [4]float32{0.133333, 0.545098, 0.133333, 1}
	Crimson        = [4]float32{0.862745, 0.078431, 0.235294, 1}
	SaddleBrown    = [4]float32{0.545098, 0.270588, 0.074510, 1}
	Green          = [4]float32{0, 0.501961, 0, 1}
	DimGray        = [4]float32{0.411765, 0.411765, 0.411765, 1}
	SlateGray      = [4]float32{0.439216, 0.501961, 0.564706, 1}
	Yellow         = [4]float32{1, 1, 0, 1}
	Gray           = [4]float32{0.501961, 0.501961, 0.501961, 1}
	DarkRed        = [4]float32{0.545098, 0, 0, 1}
	LightSteelBlue = [4]float32{0.690196, 0.768627, 0.870588, 1}
	White          = [4]float32{1, 1, 1, 1}
)
