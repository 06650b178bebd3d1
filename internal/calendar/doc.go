// Package calendar renders event records as an iCalendar feed.
package calendar
