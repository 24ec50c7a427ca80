package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// ChartEntry is one account in a chart-of-accounts file. Parent refers to
// another entry's code and must appear earlier in the file or already exist.
type ChartEntry struct {
	Code          string `yaml:"code" json:"code" validate:"required,max=32"`
	Name          string `yaml:"name" json:"name" validate:"required,max=128"`
	Type          string `yaml:"type" json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	Subtype       string `yaml:"subtype" json:"subtype" validate:"omitempty,max=32"`
	NormalBalance string `yaml:"normal_balance" json:"normal_balance" validate:"omitempty,oneof=DEBIT CREDIT"`
	Parent        string `yaml:"parent" json:"parent" validate:"omitempty,max=32"`
}

type chartFile struct {
	Accounts []ChartEntry `yaml:"accounts"`
}

// LoadChart decodes a YAML chart of accounts.
func LoadChart(r io.Reader) ([]ChartEntry, error) {
	var chart chartFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&chart); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("accounts: decode chart: %w", err)
	}
	return chart.Accounts, nil
}

// ImportResult reports what ImportChart did.
type ImportResult struct {
	Created  []Account
	Skipped  []string
	Warnings map[string][]Warning
}

// ImportChart creates every entry whose code is not registered yet. Existing
// codes are skipped, so a chart can be imported repeatedly. The import stops at
// the first invalid entry; accounts created before it are kept.
func (s *Service) ImportChart(ctx context.Context, entries []ChartEntry) (ImportResult, error) {
	result := ImportResult{Warnings: map[string][]Warning{}}
	v := shared.NewValidator()
	for i, entry := range entries {
		if err := shared.CheckStruct(v, entry); err != nil {
			return result, fmt.Errorf("chart entry %d (%s): %w", i+1, entry.Code, err)
		}
		if _, err := s.GetByCode(ctx, entry.Code); err == nil {
			result.Skipped = append(result.Skipped, entry.Code)
			continue
		} else if !errors.Is(err, shared.ErrNotFound) {
			return result, err
		}

		in := CreateAccountInput{
			Code:          entry.Code,
			Name:          entry.Name,
			Type:          AccountType(entry.Type),
			Subtype:       Subtype(entry.Subtype),
			NormalBalance: NormalBalance(entry.NormalBalance),
		}
		if entry.Parent != "" {
			parent, err := s.GetByCode(ctx, entry.Parent)
			if err != nil {
				return result, fmt.Errorf("chart entry %d (%s): parent %s: %w", i+1, entry.Code, entry.Parent, err)
			}
			in.ParentID = &parent.ID
		}
		account, warnings, err := s.Create(ctx, in)
		if err != nil {
			return result, fmt.Errorf("chart entry %d (%s): %w", i+1, entry.Code, err)
		}
		result.Created = append(result.Created, account)
		if len(warnings) > 0 {
			result.Warnings[account.Code] = warnings
		}
	}
	s.logger.Info("chart imported", slog.Int("created", len(result.Created)), slog.Int("skipped", len(result.Skipped)))
	return result, nil
}
