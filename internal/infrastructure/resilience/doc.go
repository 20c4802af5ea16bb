/*
Package resilience provides circuit breakers for remote resource fetches.

# Overview

A Breaker guards one remote key (a host name). After enough failures it
opens and rejects calls with ErrCircuitOpen until a cooldown passes, then
admits a limited number of trials before closing again. A caller whose own
context was cancelled does not count against the remote.

# Usage

	group := resilience.NewGroup(resilience.Settings{
		Cooldown: 10 * time.Second,
		Trip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})

	err := group.For(u.Host).Do(ctx, func(ctx context.Context) error {
		return fetch(ctx, u)
	})

# States

	Closed --[trip]-> Open --[cooldown]-> Half-Open --[trials ok]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
