package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CallbackDataSeparator = ":"
	// CallbackDataLimitBytes is the Bot API maximum for callback_data.
	CallbackDataLimitBytes = 64
)

var errEmptyCallback = errors.New("callback data is empty")

// EncodeCallback namespaces data under unique ("unique:data"), or returns unique alone when data is empty.
func EncodeCallback(unique, data string) (string, error) {
	payload := unique
	if data != "" {
		payload = unique + CallbackDataSeparator + data
	}

	if err := checkCallbackSize(payload); err != nil {
		return "", err
	}
	return payload, nil
}

// DecodeCallback splits callback data at the first separator.
func DecodeCallback(callbackData string) (unique, data string, err error) {
	if callbackData == "" {
		return "", "", errEmptyCallback
	}

	unique, data, _ = strings.Cut(callbackData, CallbackDataSeparator)
	return unique, data, nil
}

func checkCallbackSize(payload string) error {
	if len(payload) > CallbackDataLimitBytes {
		return fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}
	return nil
}
