package mysql

const insertBookingSQL = `
INSERT INTO bookings
  (id, session_id, confirmation_code, contact_name, contact_email, contact_phone,
   destination, start_date, end_date, headcount, budget_cents,
   cart_snapshot, total_cents, payment_ref, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// cart_snapshot is returned as stored; it is never re-derived from the cart.
const getBookingSQL = `
SELECT
  id, session_id, confirmation_code, contact_name, contact_email, contact_phone,
  destination, start_date, end_date, headcount, budget_cents,
  cart_snapshot, total_cents, payment_ref, created_at
FROM bookings
WHERE id = ?
`
