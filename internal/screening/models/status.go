package models

// Status is the tri-state outcome of a category or policy.
type Status string

const (
	StatusPass     Status = "pass"
	StatusReview   Status = "review"
	StatusExcluded Status = "excluded"
)

// Rank orders statuses: pass < review < excluded.
func (s Status) Rank() int {
	switch s {
	case StatusExcluded:
		return 2
	case StatusReview:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of s and other.
func (s Status) Worse(other Status) Status {
	if other.Rank() > s.Rank() {
		return other
	}
	if s == "" {
		return StatusPass
	}
	return s
}

// Verdict maps the status onto the final verdict vocabulary.
func (s Status) Verdict() Verdict {
	switch s {
	case StatusExcluded:
		return VerdictExcluded
	case StatusReview:
		return VerdictReview
	default:
		return VerdictPass
	}
}

// Verdict is the final tri-state outcome for an instrument or basket.
type Verdict string

const (
	VerdictPass     Verdict = "PASS"
	VerdictReview   Verdict = "REVIEW"
	VerdictExcluded Verdict = "EXCLUDED"
)

// Status maps the verdict back onto the status vocabulary.
func (v Verdict) Status() Status {
	switch v {
	case VerdictExcluded:
		return StatusExcluded
	case VerdictReview:
		return StatusReview
	default:
		return StatusPass
	}
}

// Confidence is a meta-estimate of how much evidence backs a verdict.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Rank orders confidences: Low < Medium < High.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// MinConfidence returns the weaker of a and b.
func MinConfidence(a, b Confidence) Confidence {
	if b.Rank() < a.Rank() {
		return b
	}
	return a
}
