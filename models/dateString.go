package models

import (
	"database/sql/driver"
	"errors"
	"strconv"
	"time"
)

// DateString is a date-only JSON value ("2006-01-02") that report
// endpoints widen to the organization's local day boundaries before
// querying in UTC.
type DateString time.Time

func (t DateString) Value() (driver.Value, error) {
	return time.Time(t), nil
}

func (t DateString) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Time(t).Format("2006-01-02"))), nil
}

func (t *DateString) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("date must be a string")
	}
	parsed, err := time.Parse("2006-01-02", str)
	if err != nil {
		return errors.New("date must be formatted as 2006-01-02")
	}
	*t = DateString(parsed)
	return nil
}

func (t *DateString) StartOfDayUTCTime(timezone string) error {
	if t == nil {
		return nil
	}
	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		0, 0, 0, 0,
		location,
	)
	*t = DateString(localTimeInZone.In(time.UTC))
	return nil
}

func (t *DateString) EndOfDayUTCTime(timezone string) error {
	if t == nil {
		return nil
	}
	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		23, 59, 59, 999,
		location,
	)
	*t = DateString(localTimeInZone.In(time.UTC))
	return nil
}
