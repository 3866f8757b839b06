package response

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
)

type Response[T any] struct {
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

func JSONCreatedResponse(w http.ResponseWriter, data any, message string) error {
	return jsonSuccess(w, http.StatusCreated, data, message, nil)
}

// JSONAcceptedResponse is used when the request was recorded but still waits
// on the chain.
func JSONAcceptedResponse(w http.ResponseWriter, data any, message string) error {
	return jsonSuccess(w, http.StatusAccepted, data, message, nil)
}

func JSONOkResponse(w http.ResponseWriter, data any, message string, headers http.Header) error {
	return jsonSuccess(w, http.StatusOK, data, message, headers)
}

func jsonSuccess(w http.ResponseWriter, status int, data any, message string, headers http.Header) error {
	if message == "" {
		message = "Request successful"
	}

	convertedData, ok := data.(map[string]any)
	if ok {
		data = ConvertKeysToSnakeCase(convertedData)
	}

	response := &Response[any]{
		Status:  status,
		Success: true,
		Message: message,
		Data:    data,
	}

	return JSONWithHeaders(w, response, headers)
}

// JSONErrorResponse writes a failure envelope. When err is nil the message
// doubles as the error so clients always get one.
func JSONErrorResponse(w http.ResponseWriter, err any, message string, status int, headers http.Header) error {
	if message == "" {
		message = "Request failed"
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if err == nil {
		err = message
	}

	response := &Response[any]{
		Status:  status,
		Success: false,
		Message: message,
		Error:   err,
	}

	return JSONWithHeaders(w, response, headers)
}

func JSONWithHeaders[T any](w http.ResponseWriter, response *Response[T], headers http.Header) error {
	js, err := json.MarshalIndent(response, "", "\t")
	if err != nil {
		return err
	}

	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(response.Status)

	w.Write(js)

	return nil
}

var snakeCaseRX = regexp.MustCompile("([a-z0-9])([A-Z])")

func toSnakeCase(s string) string {
	snake := snakeCaseRX.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(snake)
}

func ConvertKeysToSnakeCase(data map[string]any) map[string]any {
	snakeData := make(map[string]any)

	for key, value := range data {
		snakeKey := toSnakeCase(key)

		// Recursively handle nested maps
		if nestedMap, ok := value.(map[string]any); ok {
			value = ConvertKeysToSnakeCase(nestedMap)
		}

		snakeData[snakeKey] = value
	}
	return snakeData
}
