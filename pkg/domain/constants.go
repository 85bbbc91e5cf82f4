package domain

// Уровни графа уровней
const (
	// LevelInfinity уровень сенсора, не достижимого до стока
	LevelInfinity = 999999
)

// Значения массива предшественников при поиске пути
const (
	// PredecessorPOI предшественник первого сенсора пути (сама POI)
	PredecessorPOI = -1
	// PredecessorNone сенсор ещё не был поставлен в очередь
	PredecessorNone = -2
)

// IsReachable проверяет, что уровень сенсора конечен
func IsReachable(level int) bool {
	return level < LevelInfinity
}
