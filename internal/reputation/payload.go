package reputation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Payload is a parsed upstream reputation export. Factions keep the order in
// which they appear in the export.
type Payload struct {
	Factions []FactionPayload
}

type FactionPayload struct {
	Key   string
	Motto string
	// Body is nil for factions outside the tracked allow-list.
	Body FactionBody
}

// FactionBody is either FlatBody or CampaignedBody.
type FactionBody interface {
	isFactionBody()
}

// FlatBody is a faction whose emblems are listed directly under Emblems.Emblems.
type FlatBody struct {
	Emblems []EmblemPayload
}

// CampaignedBody is a faction split into campaigns, in export order.
type CampaignedBody struct {
	Campaigns []CampaignPayload
}

func (FlatBody) isFactionBody()       {}
func (CampaignedBody) isFactionBody() {}

type CampaignPayload struct {
	Key     string
	Title   string
	Desc    *string
	Emblems []EmblemPayload
}

type EmblemPayload struct {
	Name        Text `json:"#Name"`
	DisplayName Text `json:"DisplayName"`
	Description Text `json:"Description"`
	// Matches both "image" and "Image".
	Image     string `json:"image"`
	MaxGrade  Number `json:"MaxGrade"`
	Value     Number `json:"Value"`
	Threshold Number `json:"Threshold"`
	Grade     Number `json:"Grade"`
	Completed Flag   `json:"Completed"`
}

// Key is the emblem's stable identifier within its campaign; empty when the
// entry carries neither an internal name nor a display name.
func (e EmblemPayload) Key() string {
	if e.Name != "" {
		return string(e.Name)
	}
	return string(e.DisplayName)
}

// Text decodes strings, and numbers or booleans in their literal form.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "true" || raw == "false":
		*t = Text(raw)
	case len(raw) > 0 && (raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')):
		*t = Text(raw)
	default:
		return fmt.Errorf("invalid text %s", raw)
	}
	return nil
}

// Number decodes integers, floats (rounded to the nearest integer), numeric
// strings and null. Values outside the int64 range are rejected.
type Number int64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*n = 0
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Number(i)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return fmt.Errorf("invalid number %q", s)
	}
	f = math.Round(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return fmt.Errorf("number %q out of range", s)
	}
	*n = Number(int64(f))
	return nil
}

// Or returns def when the value is missing or zero.
func (n Number) Or(def int64) int64 {
	if n == 0 {
		return def
	}
	return int64(n)
}

// Flag decodes booleans as well as 0/1 and their string forms.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch strings.Trim(strings.TrimSpace(string(b)), `"`) {
	case "true", "1":
		*f = true
	case "false", "0", "null", "":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %s", b)
	}
	return nil
}

type rawFaction struct {
	Motto     string          `json:"Motto"`
	Emblems   emblemList      `json:"Emblems"`
	Campaigns json.RawMessage `json:"Campaigns"`
}

type rawCampaign struct {
	Title   string     `json:"Title"`
	Desc    *string    `json:"Desc"`
	Emblems emblemList `json:"Emblems"`
}

// emblemList decodes an Emblems member. The export wraps the list as
// {"Emblems": [...]}; a bare array and null are accepted as well.
type emblemList []EmblemPayload

func (l *emblemList) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if isNull(trimmed) {
		*l = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []EmblemPayload
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		*l = entries
		return nil
	}
	var wrapped struct {
		Emblems emblemList `json:"Emblems"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Emblems
	return nil
}

// ParsePayload decodes an upstream export. The shape of every tracked faction
// is decided here, once.
func ParsePayload(raw []byte) (Payload, error) {
	var p Payload
	err := walkObject(raw, func(key string, value json.RawMessage) error {
		if !IsTrackedFaction(key) {
			p.Factions = append(p.Factions, FactionPayload{Key: key, Motto: untrackedMotto(value)})
			return nil
		}
		f, err := parseFaction(key, value)
		if err != nil {
			return err
		}
		p.Factions = append(p.Factions, f)
		return nil
	})
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return p, nil
}

func parseFaction(key string, value json.RawMessage) (FactionPayload, error) {
	if !isObject(value) {
		return FactionPayload{}, fmt.Errorf("faction %s is not an object", key)
	}
	var rf rawFaction
	if err := json.Unmarshal(value, &rf); err != nil {
		return FactionPayload{}, fmt.Errorf("faction %s: %v", key, err)
	}

	f := FactionPayload{Key: key, Motto: rf.Motto}
	if len(rf.Campaigns) == 0 || isNull(rf.Campaigns) {
		f.Body = FlatBody{Emblems: rf.Emblems}
		return f, nil
	}

	body := CampaignedBody{}
	err := walkObject(rf.Campaigns, func(campaignKey string, value json.RawMessage) error {
		var rc rawCampaign
		if !isNull(value) {
			if err := json.Unmarshal(value, &rc); err != nil {
				return fmt.Errorf("faction %s campaign %s: %v", key, campaignKey, err)
			}
		}
		c := CampaignPayload{Key: campaignKey, Title: rc.Title, Emblems: rc.Emblems}
		if rc.Desc != nil && *rc.Desc != "" {
			c.Desc = rc.Desc
		}
		body.Campaigns = append(body.Campaigns, c)
		return nil
	})
	if err != nil {
		return FactionPayload{}, err
	}
	f.Body = body
	return f, nil
}

// untrackedMotto extracts a motto from a faction we do not import, ignoring
// any shape it may have.
func untrackedMotto(value json.RawMessage) string {
	var v struct {
		Motto string `json:"Motto"`
	}
	if isObject(value) {
		_ = json.Unmarshal(value, &v)
	}
	return v.Motto
}

// walkObject calls fn for each member of the JSON object in raw, in document order.
func walkObject(raw []byte, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON object")
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
