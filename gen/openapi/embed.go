// Package openapi хранит OpenAPI документ HTTP API kcmc-svc
package openapi

import (
	"embed"
)

//go:embed kcmc.openapi.json
var content embed.FS

// GetSpec возвращает содержимое OpenAPI документа
func GetSpec() ([]byte, error) {
	return content.ReadFile("kcmc.openapi.json")
}

// MustGetSpec возвращает документ или паникует
func MustGetSpec() []byte {
	data, err := GetSpec()
	if err != nil {
		panic("failed to load OpenAPI spec: " + err.Error())
	}
	return data
}
