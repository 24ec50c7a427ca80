package accounts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// Service is the account registry.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the registry. A nil logger discards output.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger}
}

// Create registers a new account. An explicit normal balance that contradicts the
// type is kept as given and reported as a warning.
func (s *Service) Create(ctx context.Context, in CreateAccountInput) (Account, []Warning, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	var errs []shared.FieldError
	if in.Code == "" {
		errs = append(errs, shared.FieldError{Field: "code", Message: "code is required"})
	}
	if in.Name == "" {
		errs = append(errs, shared.FieldError{Field: "name", Message: "name is required"})
	}
	if !in.Type.Valid() {
		errs = append(errs, shared.FieldError{Field: "type", Message: fmt.Sprintf("unknown account type %q", in.Type)})
	} else {
		if in.Subtype == "" {
			in.Subtype = in.Type.DefaultSubtype()
		}
		if !in.Type.Allows(in.Subtype) {
			errs = append(errs, shared.FieldError{Field: "subtype", Message: fmt.Sprintf("subtype %s not allowed for %s", in.Subtype, in.Type)})
		}
	}
	if in.NormalBalance != "" && !in.NormalBalance.Valid() {
		errs = append(errs, shared.FieldError{Field: "normal_balance", Message: fmt.Sprintf("unknown normal balance %q", in.NormalBalance)})
	}
	if in.ParentID != nil && len(errs) == 0 {
		parent, err := s.repo.Get(ctx, *in.ParentID)
		switch {
		case err == nil && parent.Type != in.Type:
			errs = append(errs, shared.FieldError{Field: "parent_id", Message: "parent must have the same account type"})
		case err != nil && shared.IsDomainError(err):
			errs = append(errs, shared.FieldError{Field: "parent_id", Message: "parent account does not exist"})
		case err != nil:
			return Account{}, nil, err
		}
	}
	if err := shared.NewValidationError(errs); err != nil {
		return Account{}, nil, err
	}

	var warnings []Warning
	conventional := in.Type.ConventionalNormalBalance()
	if in.NormalBalance == "" {
		in.NormalBalance = conventional
	} else if in.NormalBalance != conventional {
		warnings = append(warnings, Warning{
			Code:    WarningNormalBalanceMismatch,
			Message: fmt.Sprintf("%s accounts normally carry a %s balance, %s was requested", in.Type, conventional, in.NormalBalance),
		})
		s.logger.Warn("account normal balance differs from type convention",
			slog.String("code", in.Code),
			slog.String("type", string(in.Type)),
			slog.String("normal_balance", string(in.NormalBalance)))
	}

	if _, err := s.repo.GetByCode(ctx, in.Code); err == nil {
		return Account{}, nil, fmt.Errorf("%w: %s", shared.ErrDuplicateCode, in.Code)
	} else if !shared.IsDomainError(err) {
		return Account{}, nil, err
	}
	account, err := s.repo.Insert(ctx, in)
	if err != nil {
		return Account{}, nil, err
	}
	s.logger.Info("account created", slog.Int64("account_id", account.ID), slog.String("code", account.Code))
	return account, warnings, nil
}

// Deactivate hides the account from new postings; history stays queryable.
func (s *Service) Deactivate(ctx context.Context, id int64) (Account, error) {
	return s.setActive(ctx, id, false)
}

// Reactivate reverses Deactivate.
func (s *Service) Reactivate(ctx context.Context, id int64) (Account, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id int64, active bool) (Account, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if current.IsActive == active {
		return current, nil
	}
	return s.repo.SetActive(ctx, id, active)
}

// Delete removes an account that has never been posted to and has no children.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	posted, err := s.repo.HasPostings(ctx, id)
	if err != nil {
		return err
	}
	if posted {
		return &shared.StateError{Entity: "account", ID: id, Reason: "account has ledger postings; deactivate it instead"}
	}
	children, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if children {
		return &shared.StateError{Entity: "account", ID: id, Reason: "account has child accounts"}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (Account, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// ListByType returns accounts of one type, active or not.
func (s *Service) ListByType(ctx context.Context, t AccountType) ([]Account, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(all))
	for _, a := range all {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListActive returns accounts open for posting.
func (s *Service) ListActive(ctx context.Context) ([]Account, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(all))
	for _, a := range all {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

// Tree returns the chart as a forest ordered by code.
func (s *Service) Tree(ctx context.Context) ([]*Node, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(all), nil
}

// BuildTree links accounts to their parents. Accounts whose parent is unknown
// become roots.
func BuildTree(all []Account) []*Node {
	nodes := make(map[int64]*Node, len(all))
	for _, a := range all {
		nodes[a.ID] = &Node{Account: a}
	}
	var roots []*Node
	for _, a := range all {
		node := nodes[a.ID]
		if a.ParentID != nil {
			if parent, ok := nodes[*a.ParentID]; ok && *a.ParentID != a.ID {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Account.Code < nodes[j].Account.Code })
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
