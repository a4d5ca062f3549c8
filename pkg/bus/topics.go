package bus

import "github.com/dmitrymomot/notifier/pkg/notification"

// Topic names are a fixed contract between the pipeline stages.
const (
	// TopicIntake receives routing events from the ingestion service.
	TopicIntake = "notification.requests"
	// TopicInApp receives events routed to the in-app channel adapter.
	TopicInApp = "notification.inapp"
	// TopicEmail receives events routed to the email channel adapter.
	TopicEmail = "notification.email"
)

// channelTopics is the total mapping from the closed channel enum to channel
// topics. Every enumerated channel maps to exactly one topic; the map is
// verified against notification.Channels in tests so adding a channel
// without a topic fails fast.
var channelTopics = map[notification.Channel]string{
	notification.ChannelInApp: TopicInApp,
	notification.ChannelEmail: TopicEmail,
}

// TopicForChannel resolves the destination topic for a channel. The second
// return is false only for values outside the closed enum, which ingestion
// validation already rejects.
func TopicForChannel(ch notification.Channel) (string, bool) {
	topic, ok := channelTopics[ch]
	return topic, ok
}
