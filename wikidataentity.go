// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var wikidataJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// GlobeCoord is a Wikidata globe-coordinate claim value. Altitude and
// Precision are optional and nil when absent from the source claim.
type GlobeCoord struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64
	Precision *float64
}

// WikidataEntity is the normalized record produced by WikidataEntityParser
// for one line of the Wikidata JSON dump.
type WikidataEntity struct {
	ID               string
	SampleLabel      *string
	SampleCoord      *GlobeCoord
	PublicationDate  *int64 // epoch seconds UTC
	CountryOfOrigin  *string
	TitlesByWiki     map[string]string
	DirectInstanceOf map[string]struct{}
	DirectSubclassOf map[string]struct{}
}

const gregorianCalendar = "Q1985727"

// rawSnak mirrors the "mainsnak" shape of a Wikidata claim.
type rawSnak struct {
	Snaktype  string          `json:"snaktype"`
	Datavalue *rawDatavalue   `json:"datavalue"`
}

type rawDatavalue struct {
	Type  string              `json:"type"`
	Value jsoniter.RawMessage `json:"value"`
}

type rawClaim struct {
	Mainsnak rawSnak `json:"mainsnak"`
}

type rawEntity struct {
	Type      string                        `json:"type"`
	ID        string                        `json:"id"`
	Labels    map[string]struct{ Value string } `json:"labels"`
	Sitelinks map[string]struct{ Title string } `json:"sitelinks"`
	Claims    map[string][]rawClaim         `json:"claims"`
}

type rawGlobeCoordValue struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude"`
	Precision *float64 `json:"precision"`
}

type rawEntityIDValue struct {
	ID string `json:"id"`
}

type rawTimeValue struct {
	Time          string `json:"time"`
	Precision     int    `json:"precision"`
	CalendarModel string `json:"calendarmodel"`
}

// WikidataEntityParser decodes raw JSON lines from a WikidataStream into
// normalized WikidataEntity records.
type WikidataEntityParser struct {
	WhitelistedWikis map[string]struct{} // nil means "all wikis"
}

// NewWikidataEntityParser returns a parser with no wiki whitelist.
func NewWikidataEntityParser() *WikidataEntityParser {
	return &WikidataEntityParser{}
}

// errSkipEntity marks a line that should be silently skipped (not an error
// for the caller to report): property entities are not items.
var errSkipEntity = fmt.Errorf("conceptjoin: entity is a property, not an item")

// Parse decodes one raw JSON entity line. It returns errSkipEntity for
// property-type lines. Any other error indicates a line that is not valid
// entity JSON or a structural decoding fault in a claim's mainsnak; per the
// error-handling design, the caller
// should drop the entity and record a diagnostic rather than abort the run.
func (p *WikidataEntityParser) Parse(line []byte) (*WikidataEntity, error) {
	var raw rawEntity
	if err := wikidataJSON.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("conceptjoin: decoding wikidata entity: %w", err)
	}
	if raw.Type == "property" {
		return nil, errSkipEntity
	}

	e := &WikidataEntity{
		ID:               raw.ID,
		TitlesByWiki:     make(map[string]string),
		DirectInstanceOf: make(map[string]struct{}),
		DirectSubclassOf: make(map[string]struct{}),
	}

	e.SampleLabel = sampleLabel(raw.Labels)

	for site, sl := range raw.Sitelinks {
		if p.WhitelistedWikis != nil {
			if _, ok := p.WhitelistedWikis[site]; !ok {
				continue
			}
		}
		e.TitlesByWiki[site] = sl.Title
	}

	if claims, ok := raw.Claims["P625"]; ok {
		coord, err := firstGlobeCoord(claims)
		if err != nil {
			return nil, fmt.Errorf("conceptjoin: entity %s: P625: %w", raw.ID, err)
		}
		e.SampleCoord = coord
	}

	if claims, ok := raw.Claims["P495"]; ok {
		id, err := firstEntityID(claims)
		if err != nil {
			return nil, fmt.Errorf("conceptjoin: entity %s: P495: %w", raw.ID, err)
		}
		e.CountryOfOrigin = id
	}

	if claims, ok := raw.Claims["P577"]; ok {
		date, err := minPublicationDate(claims)
		if err != nil {
			return nil, fmt.Errorf("conceptjoin: entity %s: P577: %w", raw.ID, err)
		}
		e.PublicationDate = date
	}

	if claims, ok := raw.Claims["P31"]; ok {
		ids, err := allEntityIDs(claims)
		if err != nil {
			return nil, fmt.Errorf("conceptjoin: entity %s: P31: %w", raw.ID, err)
		}
		for _, id := range ids {
			e.DirectInstanceOf[id] = struct{}{}
		}
	}

	if claims, ok := raw.Claims["P279"]; ok {
		ids, err := allEntityIDs(claims)
		if err != nil {
			return nil, fmt.Errorf("conceptjoin: entity %s: P279: %w", raw.ID, err)
		}
		for _, id := range ids {
			e.DirectSubclassOf[id] = struct{}{}
		}
	}

	return e, nil
}

func sampleLabel(labels map[string]struct{ Value string }) *string {
	if en, ok := labels["en"]; ok {
		v := en.Value
		return &v
	}
	for _, l := range labels {
		v := l.Value
		return &v
	}
	return nil
}

// checkedSnak validates a mainsnak's structural invariants: a known
// snaktype, and for "value" snaks, a datavalue of the expected type.
func checkedSnak(snak rawSnak, wantDatavalueType string) (*rawDatavalue, error) {
	switch snak.Snaktype {
	case "":
		return nil, fmt.Errorf("mainsnak missing snaktype")
	case "novalue", "somevalue":
		return nil, nil
	case "value":
		if snak.Datavalue == nil {
			return nil, fmt.Errorf("value-typed snak missing datavalue")
		}
		if snak.Datavalue.Type != wantDatavalueType {
			return nil, fmt.Errorf("datavalue type %q, want %q", snak.Datavalue.Type, wantDatavalueType)
		}
		return snak.Datavalue, nil
	default:
		return nil, fmt.Errorf("unknown snaktype %q", snak.Snaktype)
	}
}

func firstGlobeCoord(claims []rawClaim) (*GlobeCoord, error) {
	for _, c := range claims {
		dv, err := checkedSnak(c.Mainsnak, "globecoordinate")
		if err != nil {
			return nil, err
		}
		if dv == nil {
			continue
		}
		var v rawGlobeCoordValue
		if err := wikidataJSON.Unmarshal(dv.Value, &v); err != nil {
			return nil, fmt.Errorf("decoding globecoordinate value: %w", err)
		}
		return &GlobeCoord{Latitude: v.Latitude, Longitude: v.Longitude, Altitude: v.Altitude, Precision: v.Precision}, nil
	}
	return nil, nil
}

func firstEntityID(claims []rawClaim) (*string, error) {
	for _, c := range claims {
		dv, err := checkedSnak(c.Mainsnak, "wikibase-entityid")
		if err != nil {
			return nil, err
		}
		if dv == nil {
			continue
		}
		var v rawEntityIDValue
		if err := wikidataJSON.Unmarshal(dv.Value, &v); err != nil {
			return nil, fmt.Errorf("decoding wikibase-entityid value: %w", err)
		}
		id := v.ID
		return &id, nil
	}
	return nil, nil
}

func allEntityIDs(claims []rawClaim) ([]string, error) {
	var ids []string
	for _, c := range claims {
		dv, err := checkedSnak(c.Mainsnak, "wikibase-entityid")
		if err != nil {
			return nil, err
		}
		if dv == nil {
			continue
		}
		var v rawEntityIDValue
		if err := wikidataJSON.Unmarshal(dv.Value, &v); err != nil {
			return nil, fmt.Errorf("decoding wikibase-entityid value: %w", err)
		}
		ids = append(ids, v.ID)
	}
	return ids, nil
}

// minPublicationDate returns the earliest parseable time across every P577
// claim, as epoch seconds UTC. Unparseable individual values are silently
// dropped; only a structurally malformed mainsnak is a hard error.
func minPublicationDate(claims []rawClaim) (*int64, error) {
	var min *int64
	for _, c := range claims {
		dv, err := checkedSnak(c.Mainsnak, "time")
		if err != nil {
			return nil, err
		}
		if dv == nil {
			continue
		}
		var v rawTimeValue
		if err := wikidataJSON.Unmarshal(dv.Value, &v); err != nil {
			return nil, fmt.Errorf("decoding time value: %w", err)
		}
		epoch, ok := parseWikidataTime(v)
		if !ok {
			continue
		}
		if min == nil || epoch < *min {
			e := epoch
			min = &e
		}
	}
	return min, nil
}

// parseWikidataTime converts a Wikidata time claim into epoch seconds UTC,
// honoring only the Gregorian calendar and positive-sign years. Precisions
// 7-9 parse as year-only (January 1st), 10 as year+month, 11 as
// year+month+day (any time-of-day fields are ignored). Precisions 12-14 all
// parse the full timestamp: the
// timestamp string always carries hour/minute/second fields regardless of
// the claimed precision, and collapsing them to epoch seconds loses no
// information a coarser precision would have preserved anyway.
func parseWikidataTime(v rawTimeValue) (int64, bool) {
	if v.CalendarModel != "" && !strings.HasSuffix(v.CalendarModel, gregorianCalendar) {
		return 0, false
	}
	s := v.Time
	if !strings.HasPrefix(s, "+") {
		return 0, false
	}
	s = s[1:]

	switch {
	case v.Precision >= 7 && v.Precision <= 9:
		year := s[:4]
		t, err := time.Parse("2006", year)
		if err != nil {
			return 0, false
		}
		return t.Unix(), true
	case v.Precision == 10:
		t, err := time.Parse("2006-01", s[:7])
		if err != nil {
			return 0, false
		}
		return t.Unix(), true
	case v.Precision == 11:
		if len(s) < 10 {
			return 0, false
		}
		t, err := time.Parse("2006-01-02", s[:10])
		if err != nil {
			return 0, false
		}
		return t.Unix(), true
	case v.Precision >= 12 && v.Precision <= 14:
		t, err := time.Parse("2006-01-02T15:04:05Z", s)
		if err != nil {
			return 0, false
		}
		return t.Unix(), true
	default:
		return 0, false
	}
}
