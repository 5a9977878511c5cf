package types

// Intent is the classified purpose of an inbound text
type Intent string

const (
	IntentSearch  Intent = "search"
	IntentList    Intent = "list"
	IntentDelete  Intent = "delete"
	IntentHelp    Intent = "help"
	IntentMessage Intent = "message"
)

// String returns the string representation of Intent
func (x Intent) String() string {
	return string(x)
}

// TimeKind identifies a recognized natural-language time expression
type TimeKind string

const (
	TimeKindToday     TimeKind = "today"
	TimeKindYesterday TimeKind = "yesterday"
	TimeKindThisWeek  TimeKind = "this_week"
	TimeKindLastWeek  TimeKind = "last_week"
	TimeKindThisMonth TimeKind = "this_month"
	TimeKindLastMonth TimeKind = "last_month"
	TimeKindHoursAgo  TimeKind = "hours_ago"
	TimeKindDaysAgo   TimeKind = "days_ago"
	TimeKindWeeksAgo  TimeKind = "weeks_ago"
	TimeKindMonthsAgo TimeKind = "months_ago"
	TimeKindLastHours TimeKind = "last_hours"
)

// String returns the string representation of TimeKind
func (x TimeKind) String() string {
	return string(x)
}

// Sentiment is the emotional tone attributed to a piece of content
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Normalize coerces unknown sentiment values to neutral
func (x Sentiment) Normalize() Sentiment {
	switch x {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return x
	default:
		return SentimentNeutral
	}
}

// String returns the string representation of Sentiment
func (x Sentiment) String() string {
	return string(x)
}
