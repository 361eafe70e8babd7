// Package resolvers documents the three sub-resolvers' ordering guarantee:
// within a pass they run node -> service -> instance, and within each
// resolver, sub-passes run in the order described on each function. Entity
// iteration order is the snapshot's load order throughout, which is what
// makes preemption-victim selection and placement-node selection
// reproducible across test runs.
package resolvers
