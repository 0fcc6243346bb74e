// aircraft/registry/registry_test.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package registry

import (
	"testing"
	"time"
)

func TestAddIdempotentReplacesIdentity(t *testing.T) {
	r := New()
	r.Add("PILOT", Identity{Callsign: "PILOT", ICAOType: "B738"}, Pose{Lat: 1})
	r.Add("PILOT", Identity{Callsign: "PILOT", ICAOType: "A320"}, Pose{Lat: 2})

	if r.Len() != 1 {
		t.Fatalf("got %d records, want 1", r.Len())
	}
	rec, _ := r.Get("PILOT")
	if rec.Identity.ICAOType != "A320" {
		t.Errorf("got ICAOType %q, want A320 (re-introduction should replace)", rec.Identity.ICAOType)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	r := New()
	r.Add("PILOT", Identity{Callsign: "PILOT"}, Pose{})
	r.Remove("PILOT")
	r.Remove("PILOT")
	if r.Len() != 0 {
		t.Errorf("got %d records, want 0", r.Len())
	}
}

func TestSweepStaleEvictsOldRecords(t *testing.T) {
	r := New()
	r.Add("PILOT2", Identity{Callsign: "PILOT2"}, Pose{})

	r.SweepStale(time.Now().Add(35 * time.Second))
	if _, ok := r.Get("PILOT2"); ok {
		t.Error("expected PILOT2 to be evicted after 35s of silence")
	}
}

func TestSweepStaleKeepsFreshRecords(t *testing.T) {
	r := New()
	r.Add("PILOT", Identity{Callsign: "PILOT"}, Pose{})
	r.SweepStale(time.Now().Add(10 * time.Second))
	if _, ok := r.Get("PILOT"); !ok {
		t.Error("expected PILOT to survive a 10s sweep")
	}
}

func TestApplyConfigMergesOnlyPresentFields(t *testing.T) {
	r := New()
	r.Add("PILOT", Identity{Callsign: "PILOT"}, Pose{})

	gear := true
	r.ApplyConfig("PILOT", ConfigDelta{GearDown: &gear})
	rec, _ := r.Get("PILOT")
	if !rec.Flags.GearDown {
		t.Fatal("expected GearDown true")
	}

	flaps := 0.5
	r.ApplyConfig("PILOT", ConfigDelta{FlapsRatio: &flaps})
	rec, _ = r.Get("PILOT")
	if !rec.Flags.GearDown {
		t.Error("GearDown should be unchanged by a delta that omits it")
	}
	if rec.Flags.FlapsRatio != 0.5 {
		t.Errorf("got FlapsRatio %v, want 0.5", rec.Flags.FlapsRatio)
	}
}

func TestApplyIdentityIgnoresBlankFields(t *testing.T) {
	r := New()
	r.Add("PILOT", Identity{Callsign: "PILOT"}, Pose{})

	r.ApplyIdentity("PILOT", "A320", "DLH", "")
	rec, _ := r.Get("PILOT")
	if rec.Identity.ICAOType != "A320" || rec.Identity.Airline != "DLH" {
		t.Fatalf("got %+v, want ICAOType=A320 Airline=DLH", rec.Identity)
	}
	if rec.Identity.Livery != "" {
		t.Errorf("got Livery %q, want unchanged empty", rec.Identity.Livery)
	}

	r.ApplyIdentity("PILOT", "", "", "Star Alliance")
	rec, _ = r.Get("PILOT")
	if rec.Identity.ICAOType != "A320" {
		t.Error("ICAOType should be unchanged by a blank field")
	}
	if rec.Identity.Livery != "Star Alliance" {
		t.Errorf("got Livery %q, want Star Alliance", rec.Identity.Livery)
	}
}

func TestApplyFastPositionResetsAngularVelocityAfterGap(t *testing.T) {
	r := New()
	r.Add("PILOT", Identity{Callsign: "PILOT"}, Pose{HeadingDeg: 10})

	rec, _ := r.Get("PILOT")
	rec.LastVelocityUpdate = time.Now().Add(-time.Second)
	rec.AngularVelocity = AngularVelocityTriple{HeadingRate: 1}
	rec.Predicted.HeadingDeg = 45

	r.ApplyFastPosition("PILOT", Pose{HeadingDeg: 10}, VelocityTriple{}, AngularVelocityTriple{})

	rec, _ = r.Get("PILOT")
	if rec.AngularVelocity != (AngularVelocityTriple{}) {
		t.Errorf("expected angular velocity cleared, got %+v", rec.AngularVelocity)
	}
	if rec.Predicted.HeadingDeg != 10 {
		t.Errorf("expected predicted heading snapped to ground truth, got %v", rec.Predicted.HeadingDeg)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := New()
	r.Add("PILOT", Identity{Callsign: "PILOT"}, Pose{Lat: 1})
	rec, _ := r.Get("PILOT")

	clone := Clone(rec)
	clone.GroundTruth.Lat = 99

	rec, _ = r.Get("PILOT")
	if rec.GroundTruth.Lat == 99 {
		t.Error("mutating the clone affected the original record")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := New()
	r.Add("PILOT", Identity{Callsign: "PILOT", ICAOType: "B738"}, Pose{Lat: 37.5})

	data, err := r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	r2 := New()
	if err := r2.LoadSnapshot(data); err != nil {
		t.Fatal(err)
	}
	rec, ok := r2.Get("PILOT")
	if !ok || rec.GroundTruth.Lat != 37.5 || rec.Identity.ICAOType != "B738" {
		t.Errorf("got %+v, ok=%v", rec, ok)
	}
}
