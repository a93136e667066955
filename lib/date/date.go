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
	"errors"
	"time"
)

// Award dates are compact yymmdd strings, eg. "170512" for May 12, 2017.
const awardLayout = "060102"

// Unknown is the sentinel for release dates and runtimes that the source
// data does not have.
const Unknown int64 = -1

var ErrInvalidDate = errors.New("invalid date")

func ParseAward(s string) (time.Time, error) {
	t, err := time.Parse(awardLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

func FormatAward(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(awardLayout)
}

// Millis converts a time to epoch millis, with the zero time mapping to
// Unknown.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return Unknown
	}
	return t.UnixNano() / int64(time.Millisecond)
}

// FromMillis converts epoch millis to a time, with Unknown (or any negative
// value) mapping to the zero time.
func FromMillis(ms int64) time.Time {
	if ms < 0 {
		return time.Time{}
	}
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond)).UTC()
}

// ParseRelease parses yyyy-mm-dd release dates as used by TMDB, returning
// the zero time when the value is empty or malformed.
func ParseRelease(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
