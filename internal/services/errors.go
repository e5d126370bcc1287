package services

import "errors"

// Классы ошибок ядра чата. Конкретная ошибка - *Error с понятным
// пользователю текстом, класс проверяется через errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation error")
	ErrAlreadyExists   = errors.New("already exists")
	ErrConflict        = errors.New("conflict")
)

type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func notFound(msg string) error        { return &Error{Kind: ErrNotFound, Msg: msg} }
func forbidden(msg string) error       { return &Error{Kind: ErrForbidden, Msg: msg} }
func unauthenticated(msg string) error { return &Error{Kind: ErrUnauthenticated, Msg: msg} }
func invalid(msg string) error         { return &Error{Kind: ErrValidation, Msg: msg} }
func alreadyExists(msg string) error   { return &Error{Kind: ErrAlreadyExists, Msg: msg} }
func conflict(msg string) error        { return &Error{Kind: ErrConflict, Msg: msg} }
