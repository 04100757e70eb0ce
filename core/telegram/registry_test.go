package telegram

import (
	"testing"

	"github.com/m3rciful/partsbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"})
	reg.RegisterCommand("/myorders", commands.Command{Handler: noop, Description: "My orders", Aliases: []string{"📋 My orders"}})
	reg.RegisterCommand("/orders", commands.Command{Handler: noop, Description: "Open orders", AdminOnly: true})
	reg.RegisterCommand("noslash", commands.Command{Handler: noop, Description: "bad"})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "dup"})

	if len(reg.Commands()) != 3 {
		t.Fatalf("commands = %d, want 3", len(reg.Commands()))
	}
	if got := reg.Commands()["/start"].Description; got != "Start" {
		t.Errorf("duplicate registration replaced original: %q", got)
	}

	visible := reg.ListCommands(true)
	if len(visible) != 2 || visible[0].Text != "/myorders" || visible[1].Text != "/start" {
		t.Errorf("visible = %+v", visible)
	}
}

func TestLookupCommand(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/about", commands.Command{Handler: noop, Description: "About", Aliases: []string{"ℹ️ About"}})

	cases := []struct {
		text string
		want bool
	}{
		{"/about", true},
		{"ℹ️ About", true},
		{"  ℹ️ About ", true},
		{"about", false},
		{"Toyota Camry 2015", false},
		{"", false},
	}
	for _, tc := range cases {
		key, _, ok := reg.LookupCommand(tc.text)
		if ok != tc.want {
			t.Errorf("LookupCommand(%q) ok = %v, want %v", tc.text, ok, tc.want)
		}
		if ok && key != "/about" {
			t.Errorf("LookupCommand(%q) key = %q", tc.text, key)
		}
	}
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCallback("claim", noop); err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}
	if err := reg.RegisterCallback("claim", noop); err == nil {
		t.Error("duplicate callback should fail")
	}
	if err := reg.RegisterCallback("", noop); err == nil {
		t.Error("empty key should fail")
	}
	if _, ok := reg.GetCallback("claim"); !ok {
		t.Error("claim callback missing")
	}
	if got := reg.ListCallbacks(); len(got) != 1 || got[0] != "claim" {
		t.Errorf("ListCallbacks = %v", got)
	}
}
