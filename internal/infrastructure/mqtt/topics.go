package mqtt

// Topic roots for langcheck.
const (
	// TopicPrefix is the root of every langcheck topic.
	TopicPrefix = "langcheck"

	// TopicPrefixCheck carries check requests and results.
	TopicPrefixCheck = TopicPrefix + "/check"

	// TopicPrefixSystem carries daemon and engine status.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics builds langcheck MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.CheckResult("3f1c...") // langcheck/check/result/3f1c...
type Topics struct{}

// CheckRequest is where clients publish check requests.
//
// Topic: langcheck/check/request
func (Topics) CheckRequest() string {
	return TopicPrefixCheck + "/request"
}

// CheckResult is where the result for request id is published.
//
// Topic: langcheck/check/result/{id}
func (Topics) CheckResult(id string) string {
	return TopicPrefixCheck + "/result/" + id
}

// AllCheckResults matches every check result.
//
// Pattern: langcheck/check/result/+
func (Topics) AllCheckResults() string {
	return TopicPrefixCheck + "/result/+"
}

// SystemStatus carries the retained online/offline status of the daemon.
//
// Topic: langcheck/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// EngineStatus carries the retained state of the local engine.
//
// Topic: langcheck/system/engine
func (Topics) EngineStatus() string {
	return TopicPrefixSystem + "/engine"
}

// AllTopics matches everything under langcheck/.
//
// Pattern: langcheck/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
