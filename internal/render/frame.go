package render

// Point is a canvas coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is a stroked line with round caps.
type Segment struct {
	From  Point   `json:"from"`
	To    Point   `json:"to"`
	Width float64 `json:"width"`
	Color Color   `json:"color"`
}

type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Gradient is a top to bottom fill over the whole canvas.
type Gradient struct {
	Top    Color `json:"top"`
	Bottom Color `json:"bottom"`
}

// Meter is the speech energy bar drawn while the user has the floor.
type Meter struct {
	Fill           Rect    `json:"fill"`
	FillColor      Color   `json:"fillColor"`
	Outline        Rect    `json:"outline"`
	OutlineColor   Color   `json:"outlineColor"`
	Threshold      Segment `json:"threshold"`
	ThresholdValue float64 `json:"thresholdValue"`
}

// Frame is one rendered display list.
type Frame struct {
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Background Gradient  `json:"background"`
	Glow       float64   `json:"glow"`
	Segments   []Segment `json:"segments"`
	Meter      *Meter    `json:"meter,omitempty"`
}

// LoaderFrame holds dot offsets relative to the viewport centre.
type LoaderFrame struct {
	Dots []Point `json:"dots"`
}
