package dto

// Pointers tell a missing coordinate apart from zero.

type ViewRequest struct {
	Lat    *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon    *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Zoom   *float64 `json:"zoom" validate:"omitempty,gte=0,lte=30"`
	Width  int      `json:"width" validate:"omitempty,gte=1,lte=16384"`
	Height int      `json:"height" validate:"omitempty,gte=1,lte=16384"`
}

type FlyRequest struct {
	Lat        *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon        *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Zoom       *float64 `json:"zoom" validate:"required,gte=0,lte=30"`
	DurationMS int      `json:"duration_ms" validate:"gte=0,lte=60000"`
}

type MarkerRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

type ViewResponse struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Zoom    float64 `json:"zoom"`
	Level   int     `json:"level"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Flying  bool    `json:"flying"`
	Markers int     `json:"markers"`
}
