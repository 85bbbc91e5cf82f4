package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Экземпляр
	AttrInstanceKey     = "instance.key"
	AttrInstancePOIs    = "instance.pois"
	AttrInstanceSensors = "instance.sensors"
	AttrK               = "instance.k"
	AttrM               = "instance.m"
	AttrExcluded        = "instance.excluded"

	// Прогон
	AttrRunID       = "run.id"
	AttrMethod      = "run.method"
	AttrActiveSize  = "run.active_size"
	AttrPathsFound  = "run.paths_found"
	AttrCompression = "run.compression"
	AttrValid       = "run.valid"

	// Проверка
	AttrProperty = "validation.property"
	AttrPOI      = "validation.poi"
	AttrPassed   = "validation.passed"
)

// InstanceAttributes возвращает атрибуты экземпляра
func InstanceAttributes(key string, pois, sensors, k, m, excluded int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrInstanceKey, key),
		attribute.Int(AttrInstancePOIs, pois),
		attribute.Int(AttrInstanceSensors, sensors),
		attribute.Int(AttrK, k),
		attribute.Int(AttrM, m),
		attribute.Int(AttrExcluded, excluded),
	}
}

// RunAttributes возвращает атрибуты прогона минимизатора
func RunAttributes(runID, method string, active, paths int, compression float64, valid bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.String(AttrMethod, method),
		attribute.Int(AttrActiveSize, active),
		attribute.Int(AttrPathsFound, paths),
		attribute.Float64(AttrCompression, compression),
		attribute.Bool(AttrValid, valid),
	}
}

// ValidationAttributes возвращает атрибуты проверки свойства
func ValidationAttributes(property string, poi int, passed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrProperty, property),
		attribute.Int(AttrPOI, poi),
		attribute.Bool(AttrPassed, passed),
	}
}
