// Package app holds the application services and business logic.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"orangemon/internal/domain"
)

// CollectorService runs one full data-gathering pass against the
// portal and assembles an AccountSnapshot. Section fetches degrade to
// empty results on failure; only a failed authentication aborts the
// cycle.
type CollectorService struct {
	portal domain.PortalAPI
	log    *slog.Logger
	dueLoc *time.Location
}

// NewCollectorService creates a collector over the given portal client.
// dueLoc is the location used to render invoice due dates; nil means
// the system zone.
func NewCollectorService(p domain.PortalAPI, dueLoc *time.Location, log *slog.Logger) *CollectorService {
	if log == nil {
		log = slog.Default()
	}
	return &CollectorService{portal: p, log: log, dueLoc: dueLoc}
}

// Collect builds a fresh snapshot. The snapshot is complete even when
// individual sections fail: a failed section is logged and rendered
// empty, indistinguishable from a legitimately empty section.
func (s *CollectorService) Collect(ctx context.Context) (*domain.AccountSnapshot, error) {
	if err := s.portal.EnsureAuthenticated(ctx); err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	profiles, err := s.portal.Profiles(ctx)
	if err != nil {
		s.log.Warn("failed to fetch profiles", "error", err)
		profiles = nil
	}
	if profiles == nil {
		profiles = []domain.Profile{}
	}

	subscribers, err := s.portal.Subscribers(ctx)
	if err != nil {
		s.log.Warn("failed to fetch subscribers", "error", err)
		subscribers = nil
	}
	if subscribers == nil {
		subscribers = []domain.Subscriber{}
	}

	summaries, err := s.portal.SubscriptionsSummary(ctx)
	if err != nil {
		s.log.Warn("failed to fetch subscriptions summary", "error", err)
		summaries = nil
	}
	if summaries == nil {
		summaries = []domain.SubscriptionSummary{}
	}

	unpaid := s.collectUnpaidBills(ctx, profiles)

	var loyaltyPoints float64
	for _, sum := range summaries {
		loyaltyPoints += sum.TotalPointsInShop
	}

	return &domain.AccountSnapshot{
		User:                 s.portal.Identity(),
		Profiles:             profiles,
		Subscribers:          subscribers,
		SubscriptionsSummary: summaries,
		UnpaidBills:          unpaid,
		Summary: domain.Summary{
			TotalProfiles:      len(profiles),
			TotalSubscribers:   len(subscribers),
			TotalLoyaltyPoints: loyaltyPoints,
			TotalUnpaidAmount:  unpaid.TotalAmount,
			TotalUnpaidCount:   unpaid.TotalCount,
		},
	}, nil
}

// collectUnpaidBills fetches invoice info per profile. Each fetch is
// fault-isolated: one failing profile never aborts the loop. Only
// strictly positive balances produce a record.
func (s *CollectorService) collectUnpaidBills(ctx context.Context, profiles []domain.Profile) domain.UnpaidBills {
	unpaid := domain.UnpaidBills{ByProfile: map[string]domain.UnpaidBill{}}

	for _, p := range profiles {
		if p.ID == 0 {
			continue
		}

		inv, err := s.portal.InvoiceInfo(ctx, p.ID)
		if err != nil {
			s.log.Warn("failed to fetch invoice info", "profile_id", p.ID, "error", err)
			continue
		}
		if inv == nil {
			// Prepaid profiles carry no invoice data.
			continue
		}
		if inv.TotalBalanceAmount <= 0 {
			continue
		}

		bill := domain.UnpaidBill{
			Amount:       inv.TotalBalanceAmount,
			Services:     inv.TotalBalanceServices,
			Installments: inv.TotalBalanceInstallments,
			HasInvoices:  inv.HasInvoicesOnProfile,
			ProfileName:  p.Name,
		}
		if bill.ProfileName == "" {
			bill.ProfileName = "Unknown"
		}
		if inv.DueDate != nil {
			bill.DueDate = domain.MillisToDate(*inv.DueDate, s.dueLoc)
		}

		unpaid.ByProfile[strconv.FormatInt(p.ID, 10)] = bill
		unpaid.TotalAmount += inv.TotalBalanceAmount
		unpaid.TotalCount++
	}

	return unpaid
}
