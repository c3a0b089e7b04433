package husky

/*------------------------------------------------------------------
 *
 * Purpose:   	Initiator side of the teardown.
 *
 * Description:	Symmetric three-message disconnect:
 *
 *			initiator --- DISC ---> peer
 *			initiator <--- DISC --- peer
 *			initiator ---- UA ----> peer
 *
 *		The initiator repeats its DISC on every timer expiry.
 *		The UA is written three times; the peer only needs one,
 *		but it has no way to ask again once we close the port.
 *		(The peer retransmits its DISC on its own timer, but the
 *		port is closed right after the UAs, so nothing here
 *		answers a repeated DISC.)
 *
 *---------------------------------------------------------------*/

/*-------------------------------------------------------------------
 *
 * Name:        Close
 *
 * Purpose:     Disconnect and release the serial device.
 *
 * Inputs:	showStatistics	- Log the session's traffic counters.
 *
 * Returns:	nil on a complete handshake.  The port is closed in
 *		every case.
 *
 *--------------------------------------------------------------------*/

func (s *Session) Close(showStatistics bool) error {
	if showStatistics {
		logger.Info("link statistics",
			"uniqueBytes", s.Stats.UniqueBytes,
			"wireBytes", s.Stats.WireBytes,
			"writeCalls", s.Stats.WriteCalls,
			"rejects", s.Stats.Rejects)
	}

	var err = s.awaitSuper(ctrlDISC, frameDISC, false)
	if err != nil {
		s.port.Close()
		return err
	}

	for i := 0; i < 3; i++ {
		s.port.WriteAll(frameUA)
	}

	if closeErr := s.port.Close(); closeErr != nil {
		return ErrIO
	}
	return nil
}

// abort releases the device without the disconnect handshake.  For
// hard-failure paths where no further protocol traffic is wanted.
func (s *Session) abort() {
	s.port.Close()
}
