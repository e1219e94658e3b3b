package apperror

import "errors"

var (
	ErrAlreadyQueued     = errors.New("player is already in a queue")
	ErrAlreadyInMatch    = errors.New("player is already in a match")
	ErrInsufficientStars = errors.New("not enough stars for a star match")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrCellOccupied      = errors.New("cell is already occupied")
	ErrInvalidCell       = errors.New("invalid cell index")
	ErrMatchNotFound     = errors.New("no active match")
	ErrMatchFinished     = errors.New("match is already finished")
)
