package entity

import "errors"

var (
	// Content request errors
	ErrInvalidContentRequestID = errors.New("invalid content request id")
	ErrInvalidLeagueID         = errors.New("invalid league id")
	ErrInvalidContentType      = errors.New("invalid content type")
	ErrTerminalContentStatus   = errors.New("content request already in terminal status")
	ErrNotRetryable            = errors.New("only failed content requests can be retried")

	// Comment request errors
	ErrInvalidCommentRequestID = errors.New("invalid comment request id")
	ErrInvalidUserID           = errors.New("invalid user id")

	// Conversation message errors
	ErrInvalidMessageID         = errors.New("invalid message id")
	ErrInvalidMessageOrder      = errors.New("invalid message order")
	ErrAnalysisOnNonUserMessage = errors.New("analysis can only be attached to user responses")

	// Comment response errors
	ErrInvalidCommentResponseID = errors.New("invalid comment response id")
)
