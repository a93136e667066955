// Copyright (C) 2023 The Gala Authors.
//
// This file is part of Gala.
//
// Gala is free software: you can redistribute it and/or modify it under the
// terms of the GNU Affero General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.
//
// Gala is distributed in the hope that it will be useful, but WITHOUT ANY
// WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License for
// more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with Gala.  If not, see <https://www.gnu.org/licenses/>.

package date

import (
	"testing"
	"time"
)

func TestParseAward(t *testing.T) {
	d, err := ParseAward("170512")
	if err != nil {
		t.Errorf("ParseAward %s\n", err)
	}
	if d.Year() != 2017 {
		t.Errorf("wrong year got %d\n", d.Year())
	}
	if d.Month() != time.May {
		t.Errorf("wrong month got %s\n", d.Month())
	}
	if d.Day() != 12 {
		t.Errorf("wrong day got %d\n", d.Day())
	}
	if FormatAward(d) != "170512" {
		t.Errorf("wrong format got %s\n", FormatAward(d))
	}
}

func TestParseAwardBad(t *testing.T) {
	_, err := ParseAward("not a date")
	if err == nil {
		t.Error("expect error")
	}
	_, err = ParseAward("")
	if err == nil {
		t.Error("expect error")
	}
}

func TestMillis(t *testing.T) {
	d := time.Date(2017, time.May, 12, 0, 0, 0, 0, time.UTC)
	ms := Millis(d)
	if ms <= 0 {
		t.Errorf("bad millis %d\n", ms)
	}
	if !FromMillis(ms).Equal(d) {
		t.Errorf("round trip got %s\n", FromMillis(ms))
	}
}

func TestMillisUnknown(t *testing.T) {
	if Millis(time.Time{}) != Unknown {
		t.Error("zero time should be unknown")
	}
	if !FromMillis(Unknown).IsZero() {
		t.Error("unknown should be zero time")
	}
}
