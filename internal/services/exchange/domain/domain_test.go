package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestAllTagsDeduplicatesAcrossSets(t *testing.T) {
	resource := Resource{
		SystemTags: []string{"grading", "automation"},
		UserTags:   []string{"automation", "canvas"},
		ShadowTags: []string{"grading", " assessment "},
	}
	got := resource.AllTags()
	want := []string{"assessment", "automation", "canvas", "grading"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAllTagsSkipsEmpty(t *testing.T) {
	resource := Resource{UserTags: []string{"", "  ", "rubrics"}}
	got := resource.AllTags()
	if len(got) != 1 || got[0] != "rubrics" {
		t.Fatalf("expected only rubrics, got %v", got)
	}
}

func TestHasTag(t *testing.T) {
	resource := Resource{SystemTags: []string{"grading"}, ShadowTags: []string{"rubrics"}}
	if !resource.HasTag("rubrics") {
		t.Fatal("expected shadow tag match")
	}
	if resource.HasTag("canvas") {
		t.Fatal("expected no match for unknown tag")
	}
}

func TestPasswordResetValid(t *testing.T) {
	now := time.Now()
	reset := PasswordReset{Code: "123456", ExpiresAt: now.Add(30 * time.Minute)}
	if !reset.Valid(now) {
		t.Fatal("expected fresh reset to be valid")
	}

	reset.Used = true
	if reset.Valid(now) {
		t.Fatal("expected used reset to be invalid")
	}

	reset.Used = false
	if reset.Valid(now.Add(time.Hour)) {
		t.Fatal("expected expired reset to be invalid")
	}
}

func TestValidResourceType(t *testing.T) {
	if !ValidResourceType("USE_CASE") {
		t.Fatal("expected USE_CASE to be valid")
	}
	if ValidResourceType("use_case") {
		t.Fatal("expected lowercase value to be rejected")
	}
	if ValidResourceType("WIDGET") {
		t.Fatal("expected unknown value to be rejected")
	}
}

func TestDefaultNotificationPrefs(t *testing.T) {
	prefs := DefaultNotificationPrefs()
	if !prefs.NotifyRequests {
		t.Fatal("expected request notifications on by default")
	}
	if prefs.NotifySolutions {
		t.Fatal("expected solution notifications off by default")
	}
}
