package outbox

const workoutSessionLoggedSchema = `{
  "type": "object",
  "title": "WorkoutSessionLogged",
  "properties": {
    "participation_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "challenge_id": {"type": "string"},
    "session_id": {"type": "string"},
    "session_date": {"type": "string", "format": "date-time"},
    "duration_min": {"type": "integer"},
    "calories_burned": {"type": "integer"},
    "activity_id": {"type": "string"},
    "progress": {"type": "number"}
  },
  "required": ["participation_id", "tenant_id", "user_id", "challenge_id", "session_id", "session_date", "duration_min", "calories_burned", "progress"],
  "additionalProperties": false
}`

const participationStateChangedSchema = `{
  "type": "object",
  "title": "ParticipationStateChanged",
  "properties": {
    "participation_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "challenge_id": {"type": "string"},
    "status": {"type": "string", "enum": ["active", "completed", "abandoned"]},
    "progress": {"type": "number"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["participation_id", "tenant_id", "user_id", "challenge_id", "status", "progress", "occurred_at"],
  "additionalProperties": false
}`

const badgeEarnedSchema = `{
  "type": "object",
  "title": "BadgeEarned",
  "properties": {
    "award_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "badge_id": {"type": "string"},
    "badge_name": {"type": "string"},
    "related_challenge_id": {"type": "string"},
    "earned_at": {"type": "string", "format": "date-time"}
  },
  "required": ["award_id", "tenant_id", "user_id", "badge_id", "badge_name", "earned_at"],
  "additionalProperties": false
}`
