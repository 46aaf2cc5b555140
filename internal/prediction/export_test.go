package prediction

// WithPollInterval shortens the distributed-claim retry interval in tests.
var WithPollInterval = withPollInterval
