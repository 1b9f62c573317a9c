package app

import (
	"fmt"
	"time"

	"orangemon/internal/domain"
)

// BuildSensors projects a snapshot into the flat list of host-facing
// sensors: account-wide totals plus one sensor per profile, per
// subscriber, and per profile with an unpaid balance. The projection
// is pure; it never touches the portal.
func BuildSensors(snap *domain.AccountSnapshot, loc *time.Location) []domain.Sensor {
	if snap == nil {
		return nil
	}

	sensors := []domain.Sensor{
		profileCountSensor(snap),
		subscriberCountSensor(snap),
		loyaltyPointsSensor(snap),
		totalUnpaidSensor(snap),
	}

	for _, p := range snap.Profiles {
		if p.ID == 0 {
			continue
		}
		sensors = append(sensors, profileSensor(p, loc))
	}
	for _, sub := range snap.Subscribers {
		if sub.SubscriberID == 0 {
			continue
		}
		sensors = append(sensors, subscriberSensor(sub))
	}
	for profileID, bill := range snap.UnpaidBills.ByProfile {
		sensors = append(sensors, profileUnpaidSensor(profileID, bill))
	}

	return sensors
}

func profileCountSensor(snap *domain.AccountSnapshot) domain.Sensor {
	names := make([]string, 0, len(snap.Profiles))
	ids := make([]int64, 0, len(snap.Profiles))
	for _, p := range snap.Profiles {
		names = append(names, p.Name)
		ids = append(ids, p.ID)
	}
	return domain.Sensor{
		ID:    "profile_count",
		Name:  "Orange Profile Count",
		Value: snap.Summary.TotalProfiles,
		Attributes: map[string]any{
			"profile_names": names,
			"profile_ids":   ids,
		},
	}
}

func subscriberCountSensor(snap *domain.AccountSnapshot) domain.Sensor {
	numbers := make([]string, 0, len(snap.Subscribers))
	ids := make([]int64, 0, len(snap.Subscribers))
	for _, sub := range snap.Subscribers {
		numbers = append(numbers, sub.MSISDN)
		ids = append(ids, sub.SubscriberID)
	}
	return domain.Sensor{
		ID:    "subscriber_count",
		Name:  "Orange Subscriber Count",
		Value: snap.Summary.TotalSubscribers,
		Attributes: map[string]any{
			"phone_numbers":  numbers,
			"subscriber_ids": ids,
		},
	}
}

func loyaltyPointsSensor(snap *domain.AccountSnapshot) domain.Sensor {
	attrs := map[string]any{}
	for _, sum := range snap.SubscriptionsSummary {
		if sum.ProfileID == 0 {
			continue
		}
		attrs[fmt.Sprintf("profile_%d_points", sum.ProfileID)] = sum.TotalPointsInShop
		attrs[fmt.Sprintf("profile_%d_value_ron", sum.ProfileID)] = sum.TotalValueInShop
	}
	return domain.Sensor{
		ID:         "loyalty_points",
		Name:       "Orange Loyalty Points",
		Value:      snap.Summary.TotalLoyaltyPoints,
		Attributes: attrs,
	}
}

func totalUnpaidSensor(snap *domain.AccountSnapshot) domain.Sensor {
	attrs := map[string]any{
		"total_count": snap.UnpaidBills.TotalCount,
	}
	for profileID, bill := range snap.UnpaidBills.ByProfile {
		attrs["profile_"+profileID+"_amount"] = bill.Amount
		attrs["profile_"+profileID+"_due_date"] = bill.DueDate
		attrs["profile_"+profileID+"_name"] = bill.ProfileName
	}
	return domain.Sensor{
		ID:         "total_unpaid_bills",
		Name:       "Orange Total Unpaid Bills",
		Value:      snap.UnpaidBills.TotalAmount,
		Attributes: attrs,
	}
}

func profileSensor(p domain.Profile, loc *time.Location) domain.Sensor {
	attrs := map[string]any{
		"name":          p.Name,
		"ocn":           p.OCN,
		"customer_type": p.CustomerType,
		"status":        p.Status,
		"is_admin":      p.Admin,
	}
	if p.NextInvoicePaymentDate != nil {
		attrs["next_invoice_date"] = domain.MillisToISO(*p.NextInvoicePaymentDate, loc)
	}
	value := p.CustomerType
	if value == "" {
		value = "Unknown"
	}
	return domain.Sensor{
		ID:         fmt.Sprintf("profile_%d", p.ID),
		Name:       fmt.Sprintf("Orange Profile %s", p.Name),
		Value:      value,
		Attributes: attrs,
	}
}

func subscriberSensor(sub domain.Subscriber) domain.Sensor {
	value := sub.Status
	if value == "" {
		value = "Unknown"
	}
	return domain.Sensor{
		ID:    fmt.Sprintf("subscriber_%d", sub.SubscriberID),
		Name:  fmt.Sprintf("Orange Subscriber %s", sub.MSISDN),
		Value: value,
		Attributes: map[string]any{
			"msisdn":            sub.MSISDN,
			"profile_id":        sub.ProfileID,
			"status":            sub.Status,
			"subscription_type": sub.TypeDisplayName,
			"subscription_name": sub.SubscriptionName,
			"subscriber_type":   sub.SubscriberType,
			"contact_name":      sub.ContactName,
			"is_prepay":         sub.Prepay,
		},
	}
}

func profileUnpaidSensor(profileID string, bill domain.UnpaidBill) domain.Sensor {
	return domain.Sensor{
		ID:    fmt.Sprintf("profile_%s_unpaid_bills", profileID),
		Name:  fmt.Sprintf("Orange Profile %s Unpaid Bills", bill.ProfileName),
		Value: bill.Amount,
		Attributes: map[string]any{
			"services_amount":     bill.Services,
			"installments_amount": bill.Installments,
			"due_date":            bill.DueDate,
			"has_invoices":        bill.HasInvoices,
			"profile_name":        bill.ProfileName,
		},
	}
}
