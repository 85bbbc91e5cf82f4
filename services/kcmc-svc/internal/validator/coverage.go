package validator

import (
	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/instance"
)

// Coverage проверяет, что каждую POI покрывают не менее k активных сенсоров.
//
// POI проверяются по возрастанию id, первая неудача прерывает проверку.
// Witness содержит объединение активных покрывающих сенсоров всех
// просмотренных POI, включая последнюю. При k < 1 проверка успешна и
// witness пуст.
func Coverage(in *instance.Instance, k int, exclusion domain.Set[int]) *Result {
	res := &Result{Report: success(PropertyCoverage, k), Witness: domain.NewSet[int]()}
	if k < 1 {
		return res
	}

	for poi := 0; poi < in.POIs; poi++ {
		active := domain.Difference(in.Covering(poi), exclusion)
		res.Witness.Merge(active)
		if active.Len() < k {
			res.Report = failure(PropertyCoverage, k, poi, active.Len())
			return res
		}
	}
	return res
}
