package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payloadStruct struct {
	Zeta  string         `json:"zeta"`
	Alpha int            `json:"alpha"`
	Skip  string         `json:"-"`
	Inner map[string]any `json:"inner,omitempty"`
}

func TestMarshalPayload(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, `null`},
		{"string", "hi", `"hi"`},
		{"bool", true, `true`},
		{"int", 42, `42`},
		{"large int", int64(9007199254740993), `9007199254740993`},
		{"float kept as written", 1.5, `1.5`},
		{"sorted keys", map[string]any{"b": 1, "a": 2, "c": 3}, `{"a":2,"b":1,"c":3}`},
		{"struct tags", payloadStruct{Zeta: "z", Alpha: 1, Skip: "x"}, `{"alpha":1,"zeta":"z"}`},
		{"nested", payloadStruct{Inner: map[string]any{"y": []any{1, "two", nil}}}, `{"alpha":0,"inner":{"y":[1,"two",null]},"zeta":""}`},
		{"no html escaping", "<script>&</script>", `"<script>&</script>"`},
		{"line separators literal", "a\u2028b\u2029c", "\"a\u2028b\u2029c\""},
		{"control escapes", "q\"b\\n\n\t\x01", `"q\"b\\n\n\t\u0001"`},
		{"nfc", "cafe\u0301", "\"caf\u00e9\""},
		{"nfc keys", map[string]any{"e\u0301": 1}, "{\"\u00e9\":1}"},
		// U+FF61 sorts after U+1F600 in UTF-8 byte order but before it in
		// UTF-16 code unit order (surrogate 0xD83D < 0xFF61).
		{"utf16 key order", map[string]any{"｡": 1, "\U0001F600": 2}, "{\"\U0001F600\":2,\"｡\":1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalPayload(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarshalPayload_Unencodable(t *testing.T) {
	_, err := MarshalPayload(func() {})
	assert.Error(t, err)

	_, err = MarshalPayload(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestCompareUTF16(t *testing.T) {
	assert.Equal(t, 0, compareUTF16("a", "a"))
	assert.Negative(t, compareUTF16("a", "b"))
	assert.Negative(t, compareUTF16("a", "ab"))
	assert.Positive(t, compareUTF16("｡", "\U0001F600"))
}
