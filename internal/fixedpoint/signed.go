package fixedpoint

// Signed is a sign-magnitude signed fixed-point value. It exists for the few
// pool quantities that can legitimately go negative (the share adjustment and
// net-position intermediates); everything else stays unsigned.
type Signed struct {
	neg bool
	mag FixedPoint
}

// NewSigned builds a signed value from a magnitude and sign. Negative zero
// normalizes to zero.
func NewSigned(mag FixedPoint, negative bool) Signed {
	if mag.IsZero() {
		negative = false
	}
	return Signed{neg: negative, mag: mag}
}

// SignedFrom wraps an unsigned value as non-negative.
func SignedFrom(mag FixedPoint) Signed {
	return Signed{mag: mag}
}

// Sign returns -1, 0, or 1.
func (s Signed) Sign() int {
	if s.mag.IsZero() {
		return 0
	}
	if s.neg {
		return -1
	}
	return 1
}

func (s Signed) IsNegative() bool { return s.neg }

// Abs returns the magnitude.
func (s Signed) Abs() FixedPoint { return s.mag }

// Neg returns -s.
func (s Signed) Neg() Signed {
	return NewSigned(s.mag, !s.neg)
}

// Add returns s + o.
func (s Signed) Add(o Signed) Signed {
	if s.neg == o.neg {
		return NewSigned(s.mag.Add(o.mag), s.neg)
	}
	if s.mag.Gte(o.mag) {
		return NewSigned(s.mag.Sub(o.mag), s.neg)
	}
	return NewSigned(o.mag.Sub(s.mag), o.neg)
}

// Sub returns s − o.
func (s Signed) Sub(o Signed) Signed {
	return s.Add(o.Neg())
}

func (s Signed) String() string {
	if s.neg {
		return "-" + s.mag.String()
	}
	return s.mag.String()
}

// MarshalJSON encodes as a quoted raw decimal string with optional leading
// minus, matching the FixedPoint wire format.
func (s Signed) MarshalJSON() ([]byte, error) {
	raw, err := s.mag.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if s.neg {
		return append([]byte(`"-`), raw[1:]...), nil
	}
	return raw, nil
}

// UnmarshalJSON decodes the quoted signed raw decimal format.
func (s *Signed) UnmarshalJSON(data []byte) error {
	if len(data) >= 3 && data[0] == '"' && data[1] == '-' {
		var mag FixedPoint
		if err := mag.UnmarshalJSON(append([]byte(`"`), data[2:]...)); err != nil {
			return err
		}
		*s = NewSigned(mag, true)
		return nil
	}
	var mag FixedPoint
	if err := mag.UnmarshalJSON(data); err != nil {
		return err
	}
	*s = SignedFrom(mag)
	return nil
}
