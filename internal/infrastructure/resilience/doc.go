/*
Package resilience provides a circuit breaker for outbound calls.

The story API client wraps its requests in a breaker so a degraded API
fails fast instead of stalling show requests behind timeouts.

# Usage

	breaker := resilience.New("story-api", resilience.Settings{
		Timeout: 30 * time.Second,
	})

	result, err := breaker.Execute(func() (interface{}, error) {
		return client.Call()
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                      [failure]
	                                           v
	                                         Open
*/
package resilience
