// Package api exposes the ordering engine over HTTP with gin.
//
// Routes:
//
//	GET    /health
//	GET    /lists/:list/items               ?cursor=&limit=
//	GET    /lists/:list/snapshot
//	POST   /lists/:list/items               {title, key?}
//	POST   /lists/:list/items/ranked        {title, index, fingerprint}
//	PUT    /lists/:list/items/:id/position  {above_id?, below_id?, edge?}
//	DELETE /lists/:list/items/:id
//	POST   /lists/:list/rebalance
//
// Clients run the insertion dialogue themselves against /snapshot and
// commit the chosen index with /items/ranked. A list that changed in the
// meantime answers 409 with the fresh snapshot.
package api
