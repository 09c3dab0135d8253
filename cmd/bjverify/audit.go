package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"blackjack-engine/internal/core/domain"
)

// AuditCmd verifies the JSON returned by GET /api/v1/rounds/:id/audit.
type AuditCmd struct {
	File    string `arg:"" name:"file" type:"existingfile" help:"Audit trail JSON file"`
	Verbose bool   `short:"V" help:"Print every entry"`
}

type auditTrail struct {
	Entries []domain.AuditEntry `json:"entries"`
}

func (cmd *AuditCmd) Run(out io.Writer) error {
	raw, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("read audit trail: %w", err)
	}

	entries, err := parseTrail(raw)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("audit trail is empty")
	}

	if cmd.Verbose {
		for _, e := range entries {
			fmt.Fprintf(out, "%3d  %-16s %-6s %s\n", e.Seq, e.Kind, e.Actor, e.Hash)
		}
	}

	if err := domain.VerifyAuditChain(entries); err != nil {
		return fmt.Errorf("audit chain broken: %w", err)
	}

	last := entries[len(entries)-1]
	fmt.Fprintf(out, "audit chain ok: %d entries, head %s\n", len(entries), last.Hash)
	if last.Kind != domain.AuditSeedRevealed {
		fmt.Fprintf(out, "warning: trail ends with %s, round is not settled yet\n", last.Kind)
	}
	return nil
}

// parseTrail accepts the API envelope, the bare trail object or a plain
// array of entries.
func parseTrail(raw []byte) ([]domain.AuditEntry, error) {
	var doc struct {
		auditTrail
		Data *auditTrail `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err == nil {
		if doc.Data != nil {
			return doc.Data.Entries, nil
		}
		return doc.Entries, nil
	}

	var entries []domain.AuditEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse audit trail: %w", err)
	}
	return entries, nil
}
