package dto

// Response единый конверт всех ответов REST
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

func Fail(message, code string) Response {
	return Response{Success: false, Error: &ErrorBody{Message: message, Code: code}}
}
