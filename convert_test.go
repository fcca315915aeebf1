package mcphost_test

import (
	"encoding/json"
	"reflect"
	"testing"

	mcphost "github.com/MegaGrindStone/go-mcphost"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		spec string
		want []string
	}{
		{"npx -y some-server", []string{"npx", "-y", "some-server"}},
		{"  uvx   weather-server  ", []string{"uvx", "weather-server"}},
		{"server", []string{"server"}},
		{"", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		got := mcphost.ParseCommand(tt.spec)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseCommand(%q) = %v, want %v", tt.spec, got, tt.want)
		}
	}
}

func TestCamelToSnake(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"getWeather", "get_weather"},
		{"GetWeather", "get_weather"},
		{"HTTPRequest", "http_request"},
		{"getUserID", "get_user_id"},
		{"IOError", "io_error"},
		{"already_snake", "already_snake"},
		{"lower", "lower"},
		{"A", "a"},
		{"ABC", "abc"},
		{"", ""},
		{"parseJSONBody", "parse_json_body"},
	}
	for _, tt := range tests {
		if got := mcphost.CamelToSnake(tt.in); got != tt.want {
			t.Errorf("CamelToSnake(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSnakeToCamel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"get_weather", "getWeather"},
		{"http_request", "httpRequest"},
		{"single", "single"},
		{"_leading", "leading"},
		{"trailing_", "trailing"},
		{"double__under", "doubleUnder"},
		{"_", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := mcphost.SnakeToCamel(tt.in); got != tt.want {
			t.Errorf("SnakeToCamel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGoTypeFor(t *testing.T) {
	tests := []struct {
		schema string
		want   string
	}{
		{`{"type":"string"}`, "string"},
		{`{"type":"integer"}`, "int"},
		{`{"type":"number"}`, "float64"},
		{`{"type":"boolean"}`, "bool"},
		{`{"type":"array","items":{"type":"string"}}`, "[]any"},
		{`{"type":"object"}`, "map[string]any"},
		{`{}`, "any"},
		{`{"type":"null"}`, "any"},
		{`not json`, "any"},
	}
	for _, tt := range tests {
		if got := mcphost.GoTypeFor(json.RawMessage(tt.schema)); got != tt.want {
			t.Errorf("GoTypeFor(%s) = %q, want %q", tt.schema, got, tt.want)
		}
	}
}
