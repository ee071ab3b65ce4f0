// Package model is the property layer of the modelgraph object graph.
//
// A Schema registers node types and the property descriptors attached to
// them: attributes, enumerations, associations, derived unions and
// redefinitions. Descriptors are shared by every node of their declaring
// type and its subtypes; they hold no per-node state themselves. Per-node
// values live in slots on the Node, keyed by the descriptor's identifier.
//
// Every effective mutation emits exactly one Event on the node's Model.
// Associations keep both ends of a bidirectional link in step, cascade
// unlink through composite ends and track referrers of one-way ends with a
// hidden Stub. Derived unions and redefinitions listen to the events of the
// properties they derive from and re-emit them under their own identity.
//
// A Model and its nodes are not safe for concurrent use. All mutations to a
// model must be serialized by the caller.
package model
