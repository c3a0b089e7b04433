package husky

/*------------------------------------------------------------------
 *
 * Purpose:   	Connection establishment.
 *
 * Description:	Three-way in spirit, two frames in practice:
 *
 *			Tx --- SET ---> Rx
 *			Tx <--- UA ---- Rx
 *
 *		The transmitter repeats SET on every timer expiry until
 *		a clean UA arrives or the retry budget runs out.  The
 *		receiver never transmits first: it waits for a clean SET
 *		and answers with a single UA.
 *
 *		Neither side advances its sequence bit here; both start
 *		the data phase at 0.
 *
 *---------------------------------------------------------------*/

func (s *Session) handshake() error {
	s.seq = 0

	if s.cfg.Role == Transmitter {
		logger.Debug("llopen: sending SET, waiting for UA")
		if err := s.awaitSuper(ctrlUA, frameSET, true); err != nil {
			return err
		}
		logger.Debug("llopen: UA accepted, connection up")
		return nil
	}

	logger.Debug("llopen: waiting for SET")
	if err := s.awaitSuper(ctrlSET, nil, false); err != nil {
		return err
	}
	if s.port.WriteAll(frameUA) < 0 {
		return ErrIO
	}
	logger.Debug("llopen: SET accepted, UA sent, connection up")
	return nil
}
