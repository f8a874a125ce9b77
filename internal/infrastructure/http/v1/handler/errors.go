package handler

import "errors"

var (
	ErrFailedToDecodeRequestBody = errors.New("failed to decode request body")
	ErrMarkerNotFound            = errors.New("marker not found")
	ErrMapUnavailable            = errors.New("map is not running")
	InternalServerError          = errors.New("server encountered a problem and could not process your request")
)
