package classify

import (
	"strings"
	"testing"

	"github.com/karalisweb/leadaudit/internal/domain"
)

func sig(mutate func(*domain.CommercialSignals)) domain.CommercialSignals {
	s := domain.CommercialSignals{
		AdsActive:               domain.TriFalse,
		AdsConfidence:           domain.ConfidenceLow,
		TrackingControl:         domain.TriFalse,
		TrafficWithoutDirection: domain.TriFalse,
		StructureReady:          domain.TriFalse,
		NoCommercialFootprint:   domain.TriFalse,
	}
	if mutate != nil {
		mutate(&s)
	}
	return s
}

func TestClassify_RuleOrder(t *testing.T) {
	tests := []struct {
		name   string
		signal domain.CommercialSignals
		want   domain.CommercialTag
	}{
		{
			name:   "no footprint wins over everything",
			signal: sig(func(s *domain.CommercialSignals) { s.NoCommercialFootprint = domain.TriTrue; s.AdsActive = domain.TriTrue }),
			want:   domain.TagNonTarget,
		},
		{
			name:   "ads without tracking",
			signal: sig(func(s *domain.CommercialSignals) { s.AdsActive = domain.TriTrue }),
			want:   domain.TagAdsAttiveControlloAssente,
		},
		{
			name: "ads with tracking falls through",
			signal: sig(func(s *domain.CommercialSignals) {
				s.AdsActive = domain.TriTrue
				s.TrackingControl = domain.TriTrue
			}),
			want: domain.TagDaApprofondire,
		},
		{
			name: "ads rule precedes traffic rule",
			signal: sig(func(s *domain.CommercialSignals) {
				s.AdsActive = domain.TriTrue
				s.TrafficWithoutDirection = domain.TriTrue
			}),
			want: domain.TagAdsAttiveControlloAssente,
		},
		{
			name:   "traffic without direction",
			signal: sig(func(s *domain.CommercialSignals) { s.TrafficWithoutDirection = domain.TriTrue }),
			want:   domain.TagTrafficoSenzaDirezione,
		},
		{
			name:   "structure ready",
			signal: sig(func(s *domain.CommercialSignals) { s.StructureReady = domain.TriTrue }),
			want:   domain.TagStrutturaOkNonPrioritizzata,
		},
		{
			name:   "nothing matches",
			signal: sig(nil),
			want:   domain.TagDaApprofondire,
		},
		{
			name:   "all unknown",
			signal: domain.UnknownSignals(),
			want:   domain.TagDaApprofondire,
		},
		{
			name:   "unknown ads does not trigger ads rule",
			signal: sig(func(s *domain.CommercialSignals) { s.AdsActive = domain.TriUnknown }),
			want:   domain.TagDaApprofondire,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.signal, 50)
			if got.Tag != tt.want {
				t.Errorf("Classify() tag = %s, want %s", got.Tag, tt.want)
			}
			if got.Reason == "" {
				t.Error("Classify() must always produce a reason")
			}
			if got.Priority != got.Tag.Priority() {
				t.Errorf("priority %d does not match tag priority %d", got.Priority, got.Tag.Priority())
			}
			if got.IsCallable != got.Tag.IsCallable() {
				t.Errorf("callability %v does not match tag callability", got.IsCallable)
			}
		})
	}
}

// Every combination of the five tri-valued signals must classify without
// panicking and produce a valid tag.
func TestClassify_Totality(t *testing.T) {
	values := []domain.Tri{domain.TriUnknown, domain.TriTrue, domain.TriFalse}

	for _, ads := range values {
		for _, tracking := range values {
			for _, traffic := range values {
				for _, structure := range values {
					for _, footprint := range values {
						s := domain.CommercialSignals{
							AdsActive:               ads,
							TrackingControl:         tracking,
							TrafficWithoutDirection: traffic,
							StructureReady:          structure,
							NoCommercialFootprint:   footprint,
						}
						got := Classify(s, 0)
						if !got.Tag.IsValid() {
							t.Fatalf("invalid tag %q for signals %+v", got.Tag, s)
						}
					}
				}
			}
		}
	}
}

func TestClassify_EvidenceInReason(t *testing.T) {
	s := sig(func(s *domain.CommercialSignals) {
		s.AdsActive = domain.TriTrue
		s.Evidence = []string{"tag Google Ads presente"}
	})

	got := Classify(s, 40)
	if want := "tag Google Ads presente"; !strings.Contains(got.Reason, want) {
		t.Errorf("reason %q should carry the evidence %q", got.Reason, want)
	}
}
