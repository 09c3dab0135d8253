package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"blackjack-engine/internal/core/domain"
	"blackjack-engine/internal/fairness"
)

// ShoeCmd verifies a reveal given either as flags or as the JSON returned by
// GET /api/v1/rounds/:id/reveal.
type ShoeCmd struct {
	Reveal         string `short:"r" type:"existingfile" help:"Reveal JSON file (the API response or its data field)"`
	ServerSeed     string `help:"Revealed server seed"`
	ServerSeedHash string `help:"Server seed hash committed before play"`
	ClientSeed     string `help:"Client seed"`
	Nonce          uint64 `help:"Round nonce"`
	Decks          int    `help:"Number of decks in the shoe" default:"6"`
	ShoeHash       string `help:"Published shoe hash"`
	PublicHash     string `help:"Published public hash (optional)"`
	Show           int    `short:"n" help:"Print the first N cards of the shoe (-1 = all)" default:"20"`
}

func (cmd *ShoeCmd) Run(out io.Writer) error {
	reveal, err := cmd.load()
	if err != nil {
		return err
	}

	shoe, err := fairness.Verify(reveal)
	if err != nil {
		return fmt.Errorf("round does not verify: %w", err)
	}

	fmt.Fprintf(out, "server seed hash  ok  %s\n", reveal.ServerSeedHash)
	fmt.Fprintf(out, "shoe hash         ok  %s\n", reveal.ShoeHash)
	if reveal.PublicHash != "" {
		fmt.Fprintf(out, "public hash       ok  %s\n", reveal.PublicHash)
	}
	fmt.Fprintf(out, "shoe              %d cards from %d deck(s)\n", len(shoe), reveal.DeckCount)

	n := cmd.Show
	if n < 0 || n > len(shoe) {
		n = len(shoe)
	}
	if n > 0 {
		fmt.Fprintf(out, "first %d cards     %s\n", n, domain.EncodeCards(shoe[:n]))
	}
	return nil
}

func (cmd *ShoeCmd) load() (fairness.Reveal, error) {
	if cmd.Reveal == "" {
		r := fairness.Reveal{
			ServerSeed:     cmd.ServerSeed,
			ServerSeedHash: cmd.ServerSeedHash,
			ClientSeed:     cmd.ClientSeed,
			Nonce:          cmd.Nonce,
			DeckCount:      cmd.Decks,
			ShoeHash:       cmd.ShoeHash,
			PublicHash:     cmd.PublicHash,
		}
		if r.ServerSeed == "" || r.ServerSeedHash == "" || r.ShoeHash == "" {
			return r, errors.New("--server-seed, --server-seed-hash and --shoe-hash are required without --reveal")
		}
		return r, nil
	}

	raw, err := os.ReadFile(cmd.Reveal)
	if err != nil {
		return fairness.Reveal{}, fmt.Errorf("read reveal: %w", err)
	}
	var doc struct {
		fairness.Reveal
		Data *fairness.Reveal `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fairness.Reveal{}, fmt.Errorf("parse reveal: %w", err)
	}
	if doc.Data != nil {
		return *doc.Data, nil
	}
	return doc.Reveal, nil
}
