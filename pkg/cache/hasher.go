package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// resultPrefix префикс ключей результатов минимизаторов
const resultPrefix = "result"

// InstanceHash вычисляет хеш экземпляра по его каноническому ключу
func InstanceHash(instanceKey string) string {
	if instanceKey == "" {
		return ""
	}
	return ShortHash([]byte(instanceKey))
}

// ExclusionHash хеширует множество исключённых сенсоров без учёта порядка.
// Пустое множество даёт "-".
func ExclusionHash(exclusion []int) string {
	if len(exclusion) == 0 {
		return "-"
	}

	ids := slices.Clone(exclusion)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return ShortHash([]byte(strings.Join(parts, ",")))
}

// BuildResultKey строит ключ кэша результата:
// result:<method>:<instance>:k<k>m<m>:<exclusion>
func BuildResultKey(instanceKey, method string, k, m int, exclusion []int) string {
	return fmt.Sprintf("%s:%s:%s:k%dm%d:%s",
		resultPrefix, method, InstanceHash(instanceKey), k, m, ExclusionHash(exclusion))
}

// InstancePattern паттерн всех результатов одного экземпляра
func InstancePattern(instanceKey string) string {
	return fmt.Sprintf("%s:*:%s:*", resultPrefix, InstanceHash(instanceKey))
}

// ShortHash короткий хеш (16 символов)
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
