// Package domain models crowdsourced monsoon reports: water-logging and
// drainage-blockage sightings submitted from the field with a photo and a
// GPS fix.
//
// # Report lifecycle
//
// A [ReportDraft] is created empty when the report screen mounts. The
// location resolver fills its location, the media picker fills its image and
// the user edits type, severity and description. The draft is submittable
// once both an image and a valid location are present.
//
// Submission is two network calls in a fixed order:
//
//	POST /upload/image   multipart/form-data, field "image"  ->  {"imageUrl": "..."}
//	POST /map/report     application/json [ReportPayload]     ->  2xx
//
// Both carry "Authorization: Bearer <token>".
//
// # Wire conventions
//
// Severity is sent capitalized ("Low", "Moderate", "High"). Report type is
// sent as a spaced title ("Water Log", "Drainage Block"). The event date and
// time are taken from the clock at submission, never from user input:
//
//	eventDate  "2006-01-02"   (YYYY-MM-DD)
//	eventTime  "15:04"        (HH:mm, 24-hour, zero padded)
//
// The upload part is always declared as "image/jpeg" with file name
// "upload.jpg", whatever the source format.
//
// # Map feed
//
// The aggregated map is three GeoJSON FeatureCollections: water-log reports,
// drainage-block reports and predicted hotspots. Point coordinates follow
// the GeoJSON [lon, lat] order. See [FeatureCollection].
//
// # Failures
//
// Every user-visible failure is a [*Failure] carrying a [Kind]. Failures are
// recovered at the screen boundary and rendered as notifications; none of
// them is fatal to the process.
package domain
