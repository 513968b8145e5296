package cmd

import (
	"strings"
	"testing"
)

type recordingSource struct {
	outputs []*Output
}

func (r *recordingSource) SendCommandOutput(o *Output) {
	r.outputs = append(r.outputs, o)
}

func TestExecuteLine(t *testing.T) {
	var got []string
	Register(New("echo", "Echoes its arguments.", "<text...>", []string{"say"}, RunnableFunc(func(_ Source, args []string, o *Output) {
		got = args
		o.Print(strings.Join(args, " "))
	})))

	src := &recordingSource{}
	ExecuteLine(src, "/say  hello   world ")
	if strings.Join(got, ",") != "hello,world" {
		t.Fatalf("expected arguments [hello world], got %v", got)
	}
	if len(src.outputs) != 1 || src.outputs[0].Messages()[0] != "hello world" {
		t.Fatalf("expected output to be sent back to the source, got %v", src.outputs)
	}

	ExecuteLine(src, "ECHO again")
	if len(src.outputs) != 2 {
		t.Fatalf("expected command names to be case insensitive")
	}
}

func TestExecuteLineUnknown(t *testing.T) {
	src := &recordingSource{}
	ExecuteLine(src, "doesnotexist")
	if len(src.outputs) != 1 || len(src.outputs[0].Errors()) != 1 {
		t.Fatalf("expected an error for an unknown command, got %v", src.outputs)
	}
	ExecuteLine(src, "   ")
	if len(src.outputs) != 1 {
		t.Fatalf("expected empty lines to be ignored")
	}
}

func TestUsage(t *testing.T) {
	c := New("Tickets", "", "<x> <z>", nil, RunnableFunc(func(Source, []string, *Output) {}))
	if c.Name() != "tickets" {
		t.Fatalf("expected lower case name, got %v", c.Name())
	}
	if u := c.Usage(); u != "/tickets <x> <z>" {
		t.Fatalf("expected usage /tickets <x> <z>, got %v", u)
	}
}
