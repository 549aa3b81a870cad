package models

// ServiceResponse wraps every http payload; Error and Kind are empty on success
type ServiceResponse[T any] struct {
	Data  *T     `json:"data"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

const (
	ErrorKindValidation      = "validation"
	ErrorKindMalformedRecord = "malformed_record"
	ErrorKindIO              = "io"
	ErrorKindInternal        = "internal"
)

func GetServiceResponseOk[T any](data *T) ServiceResponse[T] {
	return ServiceResponse[T]{Data: data}
}

func GetServiceResponseError(kind string, errorMessage string) ServiceResponse[any] {
	return ServiceResponse[any]{
		Error: errorMessage,
		Kind:  kind,
	}
}
