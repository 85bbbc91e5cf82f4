package instance

import (
	"fmt"
	"strconv"
	"strings"

	"kcmc/pkg/apperror"
	"kcmc/pkg/domain"
)

// Text format
//
//	KCMC;P S K;A C R;SEED;PS;p s;...;SS;a b;...;SK;s k;...;END
//
// The short form KCMC;P S K;A C R;SEED;END carries no edges; parsing it
// regenerates the instance from its seed.
const (
	prefix   = "KCMC"
	tagPS    = "PS"
	tagSS    = "SS"
	tagSK    = "SK"
	tagEnd   = "END"
	sep      = ";"
	pairSep  = " "
	headSize = 4
)

type section int

const (
	sectionNone section = iota
	sectionPS
	sectionSS
	sectionSK
	sectionEnd
)

// Key returns the settings key of the instance.
func (in *Instance) Key() string {
	return in.Params.Key()
}

// Encode serializes the instance with its full edge list. Edges are written
// in ascending (source, target) order so equal instances encode equally.
func (in *Instance) Encode() string {
	var sb strings.Builder
	sb.WriteString(prefix + sep + in.Key() + sep)

	sb.WriteString(tagPS + sep)
	for poi := 0; poi < in.POIs; poi++ {
		for _, s := range domain.Sorted(in.poiSensor.Get(poi)) {
			writePair(&sb, poi, s)
		}
	}

	sb.WriteString(tagSS + sep)
	for a := 0; a < in.Sensors; a++ {
		for _, b := range domain.Sorted(in.sensorSensor.Get(a)) {
			if a <= b {
				writePair(&sb, a, b)
			}
		}
	}

	sb.WriteString(tagSK + sep)
	for s := 0; s < in.Sensors; s++ {
		for _, k := range domain.Sorted(in.sensorSink.Get(s)) {
			writePair(&sb, s, k)
		}
	}

	sb.WriteString(tagEnd)
	return sb.String()
}

// EncodeShort serializes only the settings key.
func (in *Instance) EncodeShort() string {
	return prefix + sep + in.Key() + sep + tagEnd
}

func writePair(sb *strings.Builder, a, b int) {
	sb.WriteString(strconv.Itoa(a))
	sb.WriteString(pairSep)
	sb.WriteString(strconv.Itoa(b))
	sb.WriteString(sep)
}

// Parse reads an instance from its text form.
//
// When the text carries no PS, SS or SK section the instance is regenerated
// from the seed in its key. The text must be closed by END; anything after it
// is ignored.
func Parse(text string) (*Instance, error) {
	tokens := strings.Split(strings.TrimSpace(text), sep)
	if len(tokens) > 0 && strings.TrimSpace(tokens[len(tokens)-1]) == "" {
		tokens = tokens[:len(tokens)-1]
	}

	if len(tokens) == 0 || strings.TrimSpace(tokens[0]) != prefix {
		return nil, parseError("instance does not start with prefix %q", prefix)
	}
	if len(tokens) < headSize {
		return nil, parseError("instance header is truncated: got %d of %d fields", len(tokens), headSize)
	}

	counts, err := parseInts(tokens[1], 3)
	if err != nil {
		return nil, parseError("bad node counts %q: %v", tokens[1], err)
	}
	geometry, err := parseInts(tokens[2], 3)
	if err != nil {
		return nil, parseError("bad geometry %q: %v", tokens[2], err)
	}
	seed, err := strconv.ParseInt(strings.TrimSpace(tokens[3]), 10, 64)
	if err != nil {
		return nil, parseError("bad seed %q: %v", tokens[3], err)
	}

	params := Params{
		POIs: counts[0], Sensors: counts[1], Sinks: counts[2],
		AreaSide: geometry[0], CoverageRadius: geometry[1], CommunicationRadius: geometry[2],
		Seed: seed,
	}
	if err := params.Validate(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeParseError, "invalid instance header")
	}

	b := NewBuilder(params)
	current := sectionNone
	hasEdges := false

	for _, raw := range tokens[headSize:] {
		token := strings.TrimSpace(raw)
		if current == sectionEnd {
			break
		}
		switch token {
		case tagPS:
			current, hasEdges = sectionPS, true
			continue
		case tagSS:
			current, hasEdges = sectionSS, true
			continue
		case tagSK:
			current, hasEdges = sectionSK, true
			continue
		case tagEnd:
			current = sectionEnd
			continue
		}
		if current == sectionNone {
			return nil, parseError("unknown token %q", token)
		}

		pair, err := parseInts(token, 2)
		if err != nil {
			return nil, parseError("bad edge %q: %v", token, err)
		}
		switch current {
		case sectionPS:
			b.Cover(pair[0], pair[1])
		case sectionSS:
			b.Link(pair[0], pair[1])
		case sectionSK:
			b.LinkSink(pair[0], pair[1])
		}
	}

	if current != sectionEnd {
		return nil, parseError("instance is not closed by %q", tagEnd)
	}
	if !hasEdges {
		return Generate(params)
	}
	return b.Build()
}

func parseInts(token string, n int) ([]int, error) {
	fields := strings.Fields(token)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d integers, got %d", n, len(fields))
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseError(format string, args ...any) error {
	return apperror.New(apperror.CodeParseError, fmt.Sprintf(format, args...))
}
