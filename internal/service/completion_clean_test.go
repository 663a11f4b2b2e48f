package service

import "testing"

func TestCleanCompletionText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "vacío", in: "", want: ""},
		{name: "texto plano intacto", in: "  Sure thing. ", want: "  Sure thing. "},
		{name: "bom", in: "\uFEFFhello", want: "hello"},
		{name: "think", in: "<think>the user wants a task</think>\n[add_task]: \"buy milk\"", want: `[add_task]: "buy milk"`},
		{name: "fence completo intacto", in: "```go\nfmt.Println(1)\n```", want: "```go\nfmt.Println(1)\n```"},
		{name: "dos fences intactos", in: "```a``` and ```b```", want: "```a``` and ```b```"},
		{name: "fence interno intacto", in: "Run:\n```\nls\n```", want: "Run:\n```\nls\n```"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cleanCompletionText(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
