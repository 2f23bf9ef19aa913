package core

import (
	"reflect"
	"testing"
)

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "quoted commas and doubled quotes",
			line: `val1,"val,with,commas","a ""quoted"" word"`,
			want: []string{"val1", "val,with,commas", `a "quoted" word`},
		},
		{
			name: "empty fields",
			line: `a,,c,`,
			want: []string{"a", "", "c", ""},
		},
		{
			name: "single field",
			line: `only`,
			want: []string{"only"},
		},
		{
			name: "empty quoted field",
			line: `"",x`,
			want: []string{"", "x"},
		},
		{
			name: "unterminated quote runs to end",
			line: `a,"b,c`,
			want: []string{"a", "b,c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLine(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestSplitFields_QuotedAndRaw(t *testing.T) {
	fields := splitFields(`"x", y ,="007"`)
	if len(fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(fields))
	}

	if !fields[0].Quoted || fields[0].Text != "x" {
		t.Errorf("field 0 = %+v, want quoted x", fields[0])
	}
	if fields[1].Quoted || fields[1].Raw != " y " {
		t.Errorf("field 1 = %+v, want unquoted raw %q", fields[1], " y ")
	}
	if fields[2].Quoted || fields[2].Raw != `="007"` {
		t.Errorf("field 2 = %+v, want raw %q", fields[2], `="007"`)
	}
}

func TestTokenize_Records(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"lf", "a,b\n1,2\n3,4", 3},
		{"crlf", "a,b\r\n1,2\r\n", 2},
		{"blank lines dropped", "a,b\n\n1,2\n   \n", 2},
		{"newline inside quotes", "a,b\n\"line1\nline2\",2", 2},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.text)
			if len(got) != tt.want {
				t.Errorf("tokenize(%q) gave %d records, want %d", tt.text, len(got), tt.want)
			}
		})
	}
}

func TestTokenize_MultilineValue(t *testing.T) {
	records := tokenize("Name,Instructions\r\nAlice,\"call first\r\nthen visit\"")
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if got := records[1].Fields[1].Text; got != "call first\r\nthen visit" {
		t.Errorf("multiline value = %q", got)
	}
}

func TestSplitRecords_Lines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []rawRecord
	}{
		{
			name: "blank lines keep numbering",
			text: "h\n\na\n  \nb\n",
			want: []rawRecord{{"h", 1}, {"a", 3}, {"b", 5}},
		},
		{
			name: "multiline value starts on its first line",
			text: "h\n\"x\ny\",1\nz",
			want: []rawRecord{{"h", 1}, {"\"x\ny\",1", 2}, {"z", 4}},
		},
		{
			name: "stray quote mid field",
			text: "h\n1,Bring 5\" pipe\n2,x\n3,y",
			want: []rawRecord{{"h", 1}, {"1,Bring 5\" pipe", 2}, {"2,x", 3}, {"3,y", 4}},
		},
		{
			name: "unterminated quote keeps its own line",
			text: "h\n1,\"open\n2,x\n3,y",
			want: []rawRecord{{"h", 1}, {"1,\"open", 2}, {"2,x", 3}, {"3,y", 4}},
		},
		{
			name: "quote after leading space opens",
			text: "a, \"x\ny\"\nb",
			want: []rawRecord{{"a, \"x\ny\"", 1}, {"b", 3}},
		},
		{
			name: "excel formula quotes do not span",
			text: "=\"007\",1\n2",
			want: []rawRecord{{"=\"007\",1", 1}, {"2", 2}},
		},
		{
			name: "doubled quote inside quoted value",
			text: "\"say \"\"hi\"\"\nthere\"\nnext",
			want: []rawRecord{{"\"say \"\"hi\"\"\nthere\"", 1}, {"next", 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitRecords(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitRecords(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}
