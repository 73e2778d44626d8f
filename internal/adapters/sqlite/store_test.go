package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"schooldash/internal/domain"
	"schooldash/internal/testhelpers"
)

func TestSchoolLifecycle(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewTestStore(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	snap, err := store.CreateSchool(ctx, "albion.edu", "Albion", now)
	if err != nil {
		t.Fatalf("CreateSchool: %v", err)
	}
	if snap.ID == 0 || snap.SchoolName != "Albion" || snap.StaffCount != 0 || !snap.OrderTotal.IsZero() {
		t.Fatalf("unexpected new snapshot: %+v", snap)
	}
	if snap.DirectorySchoolID != nil {
		t.Errorf("DirectorySchoolID = %v, want nil", *snap.DirectorySchoolID)
	}

	if _, err := store.CreateSchool(ctx, "albion.edu", "Albion", now); err != domain.ErrAlreadyExists {
		t.Fatalf("duplicate create err = %v, want ErrAlreadyExists", err)
	}

	staff, id, orders := 3, int64(7), 42
	total := decimal.RequireFromString("1234.50")
	dir := domain.Succeeded("ok", domain.DirectoryData{TotalStaff: 3})
	later := now.Add(time.Hour)
	err = store.UpdateSummary(ctx, "albion.edu",
		domain.SummaryUpdate{StaffCount: &staff, DirectorySchoolID: &id, OrderCount: &orders, OrderTotal: &total},
		domain.RawData{Directory: &dir}, later)
	if err != nil {
		t.Fatalf("UpdateSummary: %v", err)
	}

	exists, got, err := store.GetSchool(ctx, "ALBION.edu")
	if err != nil || !exists {
		t.Fatalf("GetSchool exists=%v err=%v", exists, err)
	}
	if got.StaffCount != 3 || got.OrderCount != 42 || !got.OrderTotal.Equal(total) {
		t.Errorf("summary not stored: %+v", got)
	}
	if got.DirectorySchoolID == nil || *got.DirectorySchoolID != 7 {
		t.Errorf("DirectorySchoolID = %v", got.DirectorySchoolID)
	}
	if !got.LastUpdated.Equal(later) || !got.CreatedAt.Equal(now) {
		t.Errorf("timestamps = %v / %v", got.LastUpdated, got.CreatedAt)
	}
	if got.RawData.Directory == nil || got.RawData.Orders != nil {
		t.Errorf("raw data = %+v", got.RawData)
	}

	// A refresh with only marketing data leaves the other fields alone.
	emails := 0
	mkt := domain.Succeeded("ok", domain.MarketingData{})
	if err := store.UpdateSummary(ctx, "albion.edu", domain.SummaryUpdate{EmailCount: &emails}, domain.RawData{Marketing: &mkt}, later); err != nil {
		t.Fatalf("UpdateSummary: %v", err)
	}
	_, got, _ = store.GetSchool(ctx, "albion.edu")
	if got.OrderCount != 42 || got.StaffCount != 3 || got.DirectorySchoolID == nil {
		t.Errorf("partial update clobbered fields: %+v", got)
	}
	if got.RawData.Directory != nil || got.RawData.Marketing == nil {
		t.Errorf("raw data not replaced: %+v", got.RawData)
	}

	list, err := store.ListSchools(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSchools = %v, %v", list, err)
	}

	if err := store.DeleteSchool(ctx, "albion.edu"); err != nil {
		t.Fatalf("DeleteSchool: %v", err)
	}
	if err := store.DeleteSchool(ctx, "albion.edu"); err != domain.ErrNotFound {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
	if exists, _, _ := store.GetSchool(ctx, "albion.edu"); exists {
		t.Error("school still exists after delete")
	}
}

func TestUpdateSummaryMissingSchool(t *testing.T) {
	store := testhelpers.NewTestStore(t)
	err := store.UpdateSummary(context.Background(), "nowhere.edu", domain.SummaryUpdate{}, domain.RawData{}, time.Now())
	if err != domain.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListSchoolsByName(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewTestStore(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, d := range []string{"c.edu", "a.edu", "b.edu"} {
		if _, err := store.CreateSchool(ctx, d, d, now); err != nil {
			t.Fatalf("CreateSchool(%s): %v", d, err)
		}
	}
	list, err := store.ListSchools(ctx)
	if err != nil {
		t.Fatalf("ListSchools: %v", err)
	}
	if len(list) != 3 || list[0].Domain != "a.edu" || list[2].Domain != "c.edu" {
		t.Errorf("order = %v", []string{list[0].Domain, list[1].Domain, list[2].Domain})
	}
}

func TestCredentialsUpsert(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewTestStore(t)

	if exists, _, err := store.GetCredentials(ctx, domain.ServiceOrders); err != nil || exists {
		t.Fatalf("GetCredentials on empty store: exists=%v err=%v", exists, err)
	}

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c := domain.Credentials{
		Service:        domain.ServiceOrders,
		APIKey:         "key",
		AccessToken:    "token",
		ExpiresAt:      &exp,
		AdditionalData: map[string]string{"account_code": "acme"},
		UpdatedAt:      time.Now(),
	}
	if err := store.SaveCredentials(ctx, c); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}
	c.AccessToken = "rotated"
	c.ExpiresAt = nil
	if err := store.SaveCredentials(ctx, c); err != nil {
		t.Fatalf("SaveCredentials (update): %v", err)
	}

	exists, got, err := store.GetCredentials(ctx, domain.ServiceOrders)
	if err != nil || !exists {
		t.Fatalf("GetCredentials exists=%v err=%v", exists, err)
	}
	if got.AccessToken != "rotated" || got.ExpiresAt != nil || got.Extra("account_code", "") != "acme" {
		t.Errorf("credentials = %+v", got)
	}

	all, err := store.ListCredentials(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListCredentials = %v, %v", all, err)
	}
}
